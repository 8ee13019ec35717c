package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// EnvPrefix starts every environment variable serverdep reads.
const EnvPrefix = "SERVERDEP_"

// Environment variables, without the prefix.
const (
	EnvInstallPath   = "INSTALL_PATH"
	EnvServerJar     = "SERVER_JAR"
	EnvRepository    = "REPOSITORY"
	EnvVersionFile   = "VERSION_FILE"
	EnvGroupID       = "GROUP_ID"
	EnvArtifactID    = "ARTIFACT_ID"
	EnvIncludePrefix = "INCLUDE_PREFIX"
	EnvSkipSources   = "SKIP_SOURCES"
	EnvJava          = "JAVA"
	EnvVineflower    = "VINEFLOWER_JAR"
	EnvMaxHeap       = "MAX_HEAP"
	EnvIssuePolicy   = "ISSUE_POLICY"
)

// Environment returns the variables visible to serverdep: those in the
// project's .env file, overridden by the process environment. A missing
// .env file is fine; an unreadable one is INVALID_CONFIG.
func Environment(projectDir string) (map[string]string, error) {
	env := make(map[string]string)

	path := filepath.Join(projectDir, ".env")
	if _, err := os.Stat(path); err == nil {
		dotenv, err := godotenv.Read(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
		}
		for k, v := range dotenv {
			env[k] = v
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && (strings.HasPrefix(k, EnvPrefix) || k == "JAVA_HOME") {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overlays SERVERDEP_* values from env onto c. JAVA_HOME is used
// for the java executable when SERVERDEP_JAVA is unset.
func (c *Config) ApplyEnv(env map[string]string) error {
	get := func(name string) (string, bool) {
		v, ok := env[EnvPrefix+name]
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{EnvInstallPath, &c.InstallPath},
		{EnvServerJar, &c.ServerJar},
		{EnvRepository, &c.RepositoryDir},
		{EnvVersionFile, &c.VersionFile},
		{EnvGroupID, &c.GroupID},
		{EnvArtifactID, &c.ArtifactID},
		{EnvIncludePrefix, &c.IncludePrefix},
		{EnvJava, &c.Decompiler.Java},
		{EnvVineflower, &c.Decompiler.Jar},
		{EnvMaxHeap, &c.Decompiler.MaxHeap},
		{EnvIssuePolicy, &c.Decompiler.IssuePolicy},
	}
	for _, s := range strs {
		if v, ok := get(s.name); ok {
			*s.dst = v
		}
	}

	if v, ok := get(EnvSkipSources); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, EnvSkipSources)
		}
		c.SkipSources = b
	}

	if c.Decompiler.Java == "" {
		if home := strings.TrimSpace(env["JAVA_HOME"]); home != "" {
			c.Decompiler.Java = filepath.Join(home, "bin", "java")
		}
	}
	return nil
}
