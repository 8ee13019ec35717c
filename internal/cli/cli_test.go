package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/serverdep/internal/jartest"
	"github.com/matzehuels/serverdep/pkg/cache"
	"github.com/matzehuels/serverdep/pkg/config"
	"github.com/matzehuels/serverdep/pkg/errors"
)

// execute runs the root command with args and returns what it wrote to
// its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// newProject creates a project directory and an installed server jar.
func newProject(t *testing.T, version string) (project, install string) {
	t.Helper()
	project = t.TempDir()
	install = filepath.Join(t.TempDir(), "install")
	jar := filepath.Join(install, config.DefaultServerSubdir, config.DefaultServerJarName)
	jartest.ServerJar(t, jar, version,
		jartest.Entry{Name: "com/hypixel/hytale/Main.class", Body: []byte{0xca, 0xfe}},
		jartest.Entry{Name: "org/vendor/Lib.class", Body: []byte{0xca, 0xfe}},
	)
	return project, install
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", stderrors.New("boom"), ExitFailure},
		{"missing version", errors.New(errors.ErrCodeMissingVersion, "none"), ExitFailure},
		{"publish", errors.New(errors.ErrCodePublish, "disk full"), ExitFailure},
		{"invalid config", errors.New(errors.ErrCodeInvalidConfig, "bad"), ExitFailure},
		{"filter", errors.New(errors.ErrCodeFilter, "bad"), ExitSourcesOnly},
		{"decompile", errors.New(errors.ErrCodeDecompile, "bad"), ExitSourcesOnly},
		{"package", errors.New(errors.ErrCodePackage, "bad"), ExitSourcesOnly},
		{"workspace", errors.New(errors.ErrCodeWorkspace, "bad"), ExitSourcesOnly},
		{"canceled code", errors.New(errors.ErrCodeCanceled, "stop"), ExitInterrupted},
		{"context canceled", fmt.Errorf("run: %w", context.Canceled), ExitInterrupted},
		{"decompile interrupted", errors.Wrap(errors.ErrCodeDecompile, context.Canceled, "killed"), ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"setup", "detect", "coordinate", "status", "cache", "config", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestCoordinateCommand(t *testing.T) {
	project := t.TempDir()

	out, err := execute(t, "coordinate", "-C", project)
	if err != nil {
		t.Fatalf("coordinate: %v", err)
	}
	if got := strings.TrimSpace(out); got != "com.hypixel.hytale:server:+" {
		t.Errorf("cold cache notation = %q", got)
	}

	if _, err := execute(t, "coordinate", "-C", project, "--strict"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("--strict on cold cache = %v, want INVALID_INPUT", err)
	}

	path := filepath.Join(project, config.StateDir, "cache", cache.FileName)
	if err := cache.WriteVersion(path, "1.4.2"); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "coordinate", "-C", project)
	if err != nil {
		t.Fatalf("coordinate: %v", err)
	}
	if got := strings.TrimSpace(out); got != "com.hypixel.hytale:server:1.4.2" {
		t.Errorf("warm cache notation = %q", got)
	}
}

func TestDetectCommand(t *testing.T) {
	project, install := newProject(t, "1.4.2")
	jar := filepath.Join(install, config.DefaultServerSubdir, config.DefaultServerJarName)

	out, err := execute(t, "detect", "-C", project, jar)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if out != "1.4.2\n" {
		t.Errorf("detect output = %q", out)
	}
	cacheFile := filepath.Join(project, config.StateDir, "cache", cache.FileName)
	if _, err := os.Stat(cacheFile); !os.IsNotExist(err) {
		t.Error("detect wrote the cache without --write-cache")
	}

	if _, err := execute(t, "detect", "-C", project, "--write-cache", jar); err != nil {
		t.Fatalf("detect --write-cache: %v", err)
	}
	if v, ok, _ := cache.ReadVersion(cacheFile); !ok || v != "1.4.2" {
		t.Errorf("cached version = %q, %v", v, ok)
	}

	if _, err := execute(t, "detect", "-C", project); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("detect without jar = %v, want INVALID_INPUT", err)
	}
	if _, err := execute(t, "detect", "-C", project, filepath.Join(project, "absent.jar")); !errors.Is(err, errors.ErrCodeMissingArchive) {
		t.Errorf("detect absent jar = %v, want MISSING_ARCHIVE", err)
	}
}

func TestCacheCommands(t *testing.T) {
	project := t.TempDir()
	want := filepath.Join(project, config.StateDir, "cache", cache.FileName)

	out, err := execute(t, "cache", "path", "-C", project)
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", out, want)
	}

	if _, err := execute(t, "cache", "clear", "-C", project); err != nil {
		t.Fatalf("cache clear on empty cache: %v", err)
	}
	if err := cache.WriteVersion(want, "1.0"); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "cache", "clear", "-C", project); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, err := os.Stat(want); !os.IsNotExist(err) {
		t.Error("cache file still exists after clear")
	}
}

func TestConfigCommands(t *testing.T) {
	project := t.TempDir()

	if _, err := execute(t, "config", "init", "-C", project, "--install-path", "/opt/game"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	path := filepath.Join(project, config.FileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	if _, err := execute(t, "config", "init", "-C", project); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("second init = %v, want INVALID_INPUT", err)
	}
	if _, err := execute(t, "config", "init", "-C", project, "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	if err := os.WriteFile(path, []byte("install_path = \"/opt/game\"\nartifact_id = \"game-server\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "config", "show", "-C", project)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{`artifact_id = "game-server"`, `group_id = "com.hypixel.hytale"`, "[decompiler]"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}

	if err := os.WriteFile(path, []byte("artifact = \"typo\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "show", "-C", project); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown key = %v, want INVALID_CONFIG", err)
	}
}

func TestSetupSkipSources(t *testing.T) {
	project, install := newProject(t, "1.4.2")

	_, err := execute(t, "setup", "-C", project, "--install-path", install, "--skip-sources", "--no-spinner")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	dir := filepath.Join(project, config.StateDir, "repo", "com", "hypixel", "hytale", "server", "1.4.2")
	for _, name := range []string{"server-1.4.2.jar", "server-1.4.2.pom"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not published: %v", name, err)
		}
	}

	out, err := execute(t, "coordinate", "-C", project)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out); got != "com.hypixel.hytale:server:1.4.2" {
		t.Errorf("coordinate after setup = %q", got)
	}
}

func TestStatusCommand(t *testing.T) {
	project, install := newProject(t, "1.4.2")
	cfg := fmt.Sprintf("install_path = '%s'\nskip_sources = true\n", install)
	if err := os.WriteFile(filepath.Join(project, config.FileName), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	var err error
	out := captureStdout(t, func() { _, err = execute(t, "status", "-C", project, "--check") })
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("status --check before setup = %v, want INVALID_INPUT", err)
	}
	if !strings.Contains(out, "not published") {
		t.Errorf("status before setup:\n%s", out)
	}

	if _, err := execute(t, "setup", "-C", project, "--no-spinner"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out = captureStdout(t, func() { _, err = execute(t, "status", "-C", project, "--check") })
	if err != nil {
		t.Errorf("status --check after setup: %v", err)
	}
	for _, want := range []string{"com/hypixel/hytale/server/1.4.2/", "is up to date"} {
		if !strings.Contains(out, want) {
			t.Errorf("status after setup missing %q:\n%s", want, out)
		}
	}
}

func TestSetupRequiresLocations(t *testing.T) {
	project, install := newProject(t, "1.4.2")

	_, err := execute(t, "setup", "-C", project, "--no-spinner")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) || ExitCode(err) != ExitFailure {
		t.Errorf("setup without install path = %v", err)
	}

	_, err = execute(t, "setup", "-C", project, "--install-path", install, "--no-spinner")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("setup without decompiler = %v, want INVALID_CONFIG", err)
	}

	_, err = execute(t, "setup", "-C", project, "--install-path", install, "--skip-sources", "--max-heap", "lots")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("setup with bad heap = %v, want INVALID_CONFIG", err)
	}
}

func TestSetupSourcesFailureExitCode(t *testing.T) {
	java, err := exec.LookPath("false")
	if err != nil {
		t.Skip("no false executable")
	}
	project, install := newProject(t, "1.4.2")

	_, err = execute(t, "setup", "-C", project,
		"--install-path", install,
		"--vineflower", filepath.Join(project, "vineflower.jar"),
		"--java", java,
		"--no-spinner")
	if !errors.Is(err, errors.ErrCodeDecompile) {
		t.Fatalf("setup = %v, want DECOMPILE_FAILED", err)
	}
	if ExitCode(err) != ExitSourcesOnly {
		t.Errorf("ExitCode = %d, want %d", ExitCode(err), ExitSourcesOnly)
	}

	dir := filepath.Join(project, config.StateDir, "repo", "com", "hypixel", "hytale", "server", "1.4.2")
	if _, err := os.Stat(filepath.Join(dir, "server-1.4.2.jar")); err != nil {
		t.Errorf("jar should stay published: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "server-1.4.2-sources.jar")); !os.IsNotExist(err) {
		t.Error("sources jar should not exist")
	}
}

func TestSetupFlagsOverrideOnlyWhenSet(t *testing.T) {
	project := t.TempDir()
	cfgFile := "repository = \"from-file\"\n\n[decompiler]\nmax_heap = \"2g\"\njar = \"vf.jar\"\n"
	if err := os.WriteFile(filepath.Join(project, config.FileName), []byte(cfgFile), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(project, "")
	if err != nil {
		t.Fatal(err)
	}

	var flags setupFlags
	cmd := &cobra.Command{Use: "setup"}
	flags.register(cmd)
	if err := cmd.ParseFlags([]string{"--max-heap", "3g", "--skip-sources"}); err != nil {
		t.Fatal(err)
	}
	if err := flags.apply(cmd, cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if cfg.Decompiler.MaxHeap != "3g" || !cfg.SkipSources {
		t.Errorf("set flags not applied: heap=%q skip=%v", cfg.Decompiler.MaxHeap, cfg.SkipSources)
	}
	if cfg.RepositoryDir != "from-file" || cfg.Decompiler.Jar != "vf.jar" {
		t.Errorf("unset flags overrode config: repo=%q jar=%q", cfg.RepositoryDir, cfg.Decompiler.Jar)
	}
}
