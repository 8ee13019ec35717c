// Package manifest reads the metadata header embedded in a server archive.
//
// A server archive is a JAR: a zip container whose META-INF/MANIFEST.MF
// entry holds "Name: value" attributes. The detected version is the value of
// one of those attributes (Implementation-Version by default). It is treated
// as an opaque identifier: trimmed, never parsed or compared.
//
// # Usage
//
//	v, err := manifest.ReadVersion("Server/server.jar", manifest.DefaultVersionAttribute)
//	if errors.Is(err, errors.ErrCodeMissingVersion) {
//	    // archive has no usable version
//	}
//
// Reading is side-effect free: nothing is written and no network is used.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/serverdep/pkg/errors"
)

const (
	// EntryName is the archive path of the metadata header.
	EntryName = "META-INF/MANIFEST.MF"

	// DefaultVersionAttribute is the attribute archive producers write the
	// build version into.
	DefaultVersionAttribute = "Implementation-Version"

	// maxManifestSize caps how much of the header is read. Real manifests
	// are a few kilobytes; anything larger is not a manifest.
	maxManifestSize = 8 << 20
)

// Manifest holds the main-section attributes of a JAR manifest.
// Attribute names are matched case-insensitively, as JAR tooling does.
type Manifest struct {
	attrs map[string]string // lower-cased name -> value
	names []string          // original names, in file order
}

// Get returns the value of the named main-section attribute.
func (m *Manifest) Get(name string) (string, bool) {
	v, ok := m.attrs[strings.ToLower(name)]
	return v, ok
}

// Names returns the attribute names in the order they appear.
func (m *Manifest) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of main-section attributes.
func (m *Manifest) Len() int { return len(m.names) }

// Parse reads the main section of a manifest. Parsing stops at the first
// blank line; per-entry sections that follow are ignored.
//
// Continuation lines (starting with a single space) are joined onto the
// previous value. LF, CRLF and bare CR line endings are accepted. When an
// attribute is repeated, the last value wins.
func Parse(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxManifestSize))
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	m := &Manifest{attrs: make(map[string]string)}
	var lastKey string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), maxManifestSize)
	sc.Split(scanManifestLines)

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		if line[0] == ' ' {
			if lastKey == "" {
				return nil, fmt.Errorf("continuation line without attribute: %q", line)
			}
			m.attrs[lastKey] += line[1:]
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid manifest header: %q", line)
		}
		value = strings.TrimPrefix(value, " ")

		key := strings.ToLower(name)
		if _, seen := m.attrs[key]; !seen {
			m.names = append(m.names, name)
		}
		m.attrs[key] = value
		lastKey = key
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// scanManifestLines is a bufio.SplitFunc that accepts \n, \r\n and \r.
func scanManifestLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// \r: swallow a following \n, but only once we know what follows.
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Read opens the archive at path and parses its manifest.
//
// Errors:
//   - MISSING_ARCHIVE if path does not exist or is a directory
//   - INVALID_ARCHIVE if path is not a readable zip container
//   - MISSING_METADATA if there is no manifest entry, or it cannot be parsed
func Read(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMissingArchive, err, "server archive not found at %s", path)
	}
	if info.IsDir() {
		return nil, errors.New(errors.ErrCodeMissingArchive, "server archive path %s is a directory", path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArchive, err, "open %s", path)
	}
	defer zr.Close()

	f := findEntry(zr.File)
	if f == nil {
		return nil, errors.New(errors.ErrCodeMissingMetadata, "no manifest found in %s", path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMissingMetadata, err, "open manifest in %s", path)
	}
	defer rc.Close()

	m, err := Parse(rc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMissingMetadata, err, "parse manifest in %s", path)
	}
	return m, nil
}

// findEntry locates the manifest, preferring an exact name match.
func findEntry(files []*zip.File) *zip.File {
	var folded *zip.File
	for _, f := range files {
		if f.Name == EntryName {
			return f
		}
		if folded == nil && strings.EqualFold(f.Name, EntryName) {
			folded = f
		}
	}
	return folded
}

// ReadVersion returns the trimmed value of attribute from the archive's
// manifest. An absent attribute, or one whose value is blank, is a
// MISSING_VERSION error; a version is never defaulted.
func ReadVersion(path, attribute string) (string, error) {
	if attribute == "" {
		attribute = DefaultVersionAttribute
	}
	m, err := Read(path)
	if err != nil {
		return "", err
	}
	v, ok := m.Get(attribute)
	if !ok {
		return "", errors.New(errors.ErrCodeMissingVersion, "no %s found in manifest of %s", attribute, path)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.New(errors.ErrCodeMissingVersion, "%s is blank in manifest of %s", attribute, path)
	}
	return v, nil
}
