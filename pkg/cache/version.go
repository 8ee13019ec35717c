// Package cache persists the last detected server version.
//
// The version file is a single line of UTF-8 text. It is written by the
// pipeline right after extraction and read by build tooling that may run
// before the pipeline ever has (a cold cache). Readers must tolerate a
// missing or stale file: a missing file resolves to [FallbackVersion].
//
// There is no locking. The pipeline is the only writer and concurrent runs
// for the same project are outside the contract.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/serverdep/pkg/errors"
)

const (
	// FileName is the default name of the version file.
	FileName = "server-version.txt"

	// FallbackVersion is the dynamic version token used when no version has
	// been cached yet. Maven-style resolvers read it as "newest available".
	FallbackVersion = "+"
)

// ReadVersion returns the cached version.
// A missing file, or one holding only whitespace, reports ok == false with
// a nil error. Any other read failure is CACHE_READ_FAILED.
func ReadVersion(path string) (version string, ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(errors.ErrCodeCacheRead, err, "read version cache %s", path)
	}

	version = strings.TrimSpace(string(data))
	if version == "" {
		return "", false, nil
	}
	return version, true, nil
}

// WriteVersion records version at path, creating parent directories as
// needed. The file is overwritten in place; failures are CACHE_WRITE_FAILED.
func WriteVersion(path, version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return errors.New(errors.ErrCodeCacheWrite, "refusing to cache an empty version")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWrite, err, "create cache directory")
	}
	if err := os.WriteFile(path, []byte(version), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWrite, err, "write version cache %s", path)
	}
	return nil
}

// ResolveVersion returns the cached version, or FallbackVersion when the
// cache is cold or unreadable. The read error, if any, is returned
// alongside the fallback so callers can warn about it.
func ResolveVersion(path string) (string, error) {
	v, ok, err := ReadVersion(path)
	if err != nil {
		return FallbackVersion, err
	}
	if !ok {
		return FallbackVersion, nil
	}
	return v, nil
}

// Notation formats a "group:artifact:version" dependency notation.
func Notation(group, artifact, version string) string {
	return fmt.Sprintf("%s:%s:%s", group, artifact, version)
}

// Clear removes the version file. A missing file is not an error.
func Clear(path string) (removed bool, err error) {
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeCacheWrite, err, "remove version cache %s", path)
	}
	return true, nil
}
