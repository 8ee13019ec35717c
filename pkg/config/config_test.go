package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/serverdep/pkg/decompile"
	"github.com/matzehuels/serverdep/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}
	if got, want := cfg.RepositoryPath(), filepath.Join(dir, ".serverdep", "repo"); got != want {
		t.Errorf("RepositoryPath() = %q, want %q", got, want)
	}
	if got, want := cfg.VersionFilePath(), filepath.Join(dir, ".serverdep", "cache", "server-version.txt"); got != want {
		t.Errorf("VersionFilePath() = %q, want %q", got, want)
	}
	if cfg.ServerJarPath() != "" {
		t.Errorf("ServerJarPath() = %q, want empty without install path", cfg.ServerJarPath())
	}
	if cfg.DecompileOptions() != decompile.DefaultOptions() {
		t.Errorf("DecompileOptions() = %+v", cfg.DecompileOptions())
	}
	if cfg.IssuePolicy() != decompile.IssuesWarn {
		t.Errorf("IssuePolicy() = %q", cfg.IssuePolicy())
	}
	c := cfg.Coordinate("1.0")
	if c.Notation() != "com.hypixel.hytale:server:1.0" {
		t.Errorf("Coordinate() = %s", c)
	}
}

func TestServerJarPath(t *testing.T) {
	dir := t.TempDir()

	cfg := Default(dir)
	cfg.InstallPath = "install"
	if got, want := cfg.ServerJarPath(), filepath.Join(dir, "install", "Server", "HytaleServer.jar"); got != want {
		t.Errorf("ServerJarPath() = %q, want %q", got, want)
	}

	abs := filepath.Join(dir, "elsewhere", "custom.jar")
	cfg.ServerJar = abs
	if got := cfg.ServerJarPath(); got != abs {
		t.Errorf("explicit ServerJarPath() = %q, want %q", got, abs)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
install_path = "/opt/game"
group_id = "com.example"
artifact_id = "game-server"
include_prefix = "com/example/"
repository = "build/repo"

[decompiler]
jar = "tools/vineflower.jar"
max_heap = "2g"
issue_policy = "fail"
`)

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GroupID != "com.example" || cfg.ArtifactID != "game-server" {
		t.Errorf("coordinate = %s:%s", cfg.GroupID, cfg.ArtifactID)
	}
	if cfg.ServerSubdir != DefaultServerSubdir {
		t.Errorf("unset keys should keep defaults, ServerSubdir = %q", cfg.ServerSubdir)
	}
	if got, want := cfg.RepositoryPath(), filepath.Join(dir, "build", "repo"); got != want {
		t.Errorf("RepositoryPath() = %q, want %q", got, want)
	}
	if got, want := cfg.VineflowerJarPath(), filepath.Join(dir, "tools", "vineflower.jar"); got != want {
		t.Errorf("VineflowerJarPath() = %q, want %q", got, want)
	}
	if cfg.DecompileOptions().MaxHeap != "2g" {
		t.Errorf("MaxHeap = %q", cfg.DecompileOptions().MaxHeap)
	}
	if cfg.IssuePolicy() != decompile.IssuesFail {
		t.Errorf("IssuePolicy() = %q", cfg.IssuePolicy())
	}
	if err := cfg.ValidateForSetup(); err != nil {
		t.Errorf("ValidateForSetup() error: %v", err)
	}
}

func TestEmptyDecompilerSettingsTakeDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
install_path = "/opt/game"

[decompiler]
jar = "vf.jar"
max_heap = ""
indent = ""
`)

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.ValidateForSetup(); err != nil {
		t.Fatalf("ValidateForSetup() error: %v", err)
	}
	opts := cfg.DecompileOptions()
	if opts != decompile.DefaultOptions() {
		t.Errorf("DecompileOptions() = %+v, want %+v", opts, decompile.DefaultOptions())
	}

	args := (&decompile.Vineflower{Jar: "vf.jar"}).Args("in.jar", "out", opts)
	if !slices.Contains(args, "-Xmx"+decompile.DefaultMaxHeap) {
		t.Errorf("Args() = %q, want a heap ceiling", args)
	}
	if !slices.Contains(args, "-ind="+decompile.DefaultIndent) {
		t.Errorf("Args() = %q, want the default indent", args)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(dir, filepath.Join(dir, "absent.toml")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("missing explicit file: %v, want INVALID_CONFIG", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "group_id = [unterminated")
	if _, err := Load(dir, bad); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("malformed file: %v, want INVALID_CONFIG", err)
	}

	unknown := filepath.Join(dir, "unknown.toml")
	writeFile(t, unknown, "grup_id = \"typo\"\n")
	if _, err := Load(dir, unknown); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown key: %v, want INVALID_CONFIG", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load() without config file error: %v", err)
	}
	if cfg.GroupID != DefaultGroupID {
		t.Errorf("GroupID = %q, want default", cfg.GroupID)
	}
}

func TestEnvironmentPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "artifact_id = \"from-file\"\ngroup_id = \"com.file\"\n")
	writeFile(t, filepath.Join(dir, ".env"), "SERVERDEP_ARTIFACT_ID=from-dotenv\nSERVERDEP_MAX_HEAP=1g\nSERVERDEP_SKIP_SOURCES=true\n")
	t.Setenv("SERVERDEP_MAX_HEAP", "3g")
	t.Setenv("SERVERDEP_JAVA", "")
	t.Setenv("JAVA_HOME", filepath.Join(dir, "jdk"))

	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GroupID != "com.file" {
		t.Errorf("GroupID = %q, want file value", cfg.GroupID)
	}
	if cfg.ArtifactID != "from-dotenv" {
		t.Errorf("ArtifactID = %q, .env should override the file", cfg.ArtifactID)
	}
	if cfg.Decompiler.MaxHeap != "3g" {
		t.Errorf("MaxHeap = %q, process env should override .env", cfg.Decompiler.MaxHeap)
	}
	if !cfg.SkipSources {
		t.Error("SkipSources should be set from .env")
	}
	if got, want := cfg.Decompiler.Java, filepath.Join(dir, "jdk", "bin", "java"); got != want {
		t.Errorf("Java = %q, want %q from JAVA_HOME", got, want)
	}
}

func TestApplyEnvErrors(t *testing.T) {
	cfg := Default(t.TempDir())
	err := cfg.ApplyEnv(map[string]string{"SERVERDEP_SKIP_SOURCES": "maybe"})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("ApplyEnv() = %v, want INVALID_CONFIG", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"empty group", func(c *Config) { c.GroupID = "" }},
		{"bad group", func(c *Config) { c.GroupID = "com/example" }},
		{"bad artifact", func(c *Config) { c.ArtifactID = "../x" }},
		{"empty attribute", func(c *Config) { c.VersionAttribute = " " }},
		{"empty prefix", func(c *Config) { c.IncludePrefix = "" }},
		{"bad heap", func(c *Config) { c.Decompiler.MaxHeap = "huge" }},
		{"bad policy", func(c *Config) { c.Decompiler.IssuePolicy = "panic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tt.mod(cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestValidateForSetup(t *testing.T) {
	cfg := Default(t.TempDir())
	if err := cfg.ValidateForSetup(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("no install path: %v, want INVALID_CONFIG", err)
	}

	cfg.InstallPath = "/opt/game"
	if err := cfg.ValidateForSetup(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("no decompiler: %v, want INVALID_CONFIG", err)
	}

	cfg.SkipSources = true
	if err := cfg.ValidateForSetup(); err != nil {
		t.Errorf("skip sources: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.InstallPath = "/opt/game"
	cfg.Decompiler.Jar = "vf.jar"

	path := filepath.Join(dir, "sub", FileName)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, err := Load(dir, path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.InstallPath != cfg.InstallPath || loaded.Decompiler != cfg.Decompiler || loaded.IncludePrefix != cfg.IncludePrefix {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}
