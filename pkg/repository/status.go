package repository

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// Status compares one coordinate in the repository against an installed
// archive.
type Status struct {
	Coordinate Coordinate
	RelPath    string // what a resolver requests, e.g. com/example/server/1.4.2/

	// Versions and Latest come from maven-metadata.xml; both are empty
	// when the artifact was never published.
	Versions []string
	Latest   string

	Published       bool   // jar present and descriptor matches the coordinate
	InstalledSHA256 string // digest of the installed archive
	PublishedSHA256 string // digest of the published jar, if present
	HasSources      bool
}

// JarMatches reports whether the published jar is the installed archive.
func (s *Status) JarMatches() bool {
	return s.PublishedSHA256 != "" && s.PublishedSHA256 == s.InstalledSHA256
}

// Stale returns why the repository does not hold the installed archive, or
// "" when it does. Missing sources count only if requireSources is set.
func (s *Status) Stale(requireSources bool) string {
	switch {
	case !s.Published:
		return "not published"
	case !s.JarMatches():
		return "published jar differs from the installed jar"
	case requireSources && !s.HasSources:
		return "sources jar missing"
	}
	return ""
}

// Inspect reads what the repository at root holds for c and compares the
// published jar with the archive at jarPath. It writes nothing. An
// unreadable installed archive is MISSING_ARCHIVE; an unreadable
// metadata file is INVALID_INPUT.
func Inspect(root string, c Coordinate, jarPath string) (*Status, error) {
	installed, err := FileDigest(jarPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMissingArchive, err, "read %s", jarPath)
	}
	s := &Status{Coordinate: c, RelPath: c.RelPath(), InstalledSHA256: installed}

	versions, latest, err := ReadMetadata(filepath.Join(c.ArtifactDir(root), MetadataFile))
	switch {
	case err == nil:
		s.Versions, s.Latest = versions, latest
	case !os.IsNotExist(err):
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", MetadataFile)
	}

	if data, err := os.ReadFile(c.Path(root, "", "pom")); err == nil {
		pc, packaging, err := ReadPOM(data)
		s.Published = err == nil && pc == c && packaging == Packaging
	}
	if sum, err := FileDigest(c.Path(root, "", Packaging)); err == nil {
		s.PublishedSHA256 = sum
	} else {
		s.Published = false
	}
	if _, err := os.Stat(c.Path(root, SourcesClassifier, Packaging)); err == nil {
		s.HasSources = true
	}
	return s, nil
}
