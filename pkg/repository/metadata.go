package repository

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MetadataFile is the artifact-level index a resolver consults to expand
// dynamic versions such as "+".
const MetadataFile = "maven-metadata.xml"

type metadata struct {
	XMLName    xml.Name   `xml:"metadata"`
	GroupID    string     `xml:"groupId"`
	ArtifactID string     `xml:"artifactId"`
	Versioning versioning `xml:"versioning"`
}

type versioning struct {
	Latest      string   `xml:"latest"`
	Release     string   `xml:"release"`
	Versions    []string `xml:"versions>version"`
	LastUpdated string   `xml:"lastUpdated"`
}

// lastUpdatedLayout is Maven's yyyyMMddHHmmss timestamp format.
const lastUpdatedLayout = "20060102150405"

// Metadata renders maven-metadata.xml for c's artifact. versions is
// written in the given order; c.Version is reported as latest and release,
// since it is the one just published. updated is the lastUpdated stamp.
func Metadata(c Coordinate, versions []string, updated time.Time) ([]byte, error) {
	m := metadata{
		GroupID:    c.GroupID,
		ArtifactID: c.ArtifactID,
		Versioning: versioning{
			Latest:      c.Version,
			Release:     c.Version,
			Versions:    versions,
			LastUpdated: updated.UTC().Format(lastUpdatedLayout),
		},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ReadMetadata parses a maven-metadata.xml file.
// It returns the listed versions and the latest version.
func ReadMetadata(path string) (versions []string, latest string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var m metadata
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}
	return m.Versioning.Versions, m.Versioning.Latest, nil
}

// PublishedVersions lists the version directories under c's artifact
// directory that hold a descriptor. Scratch directories and anything else
// without a descriptor are ignored. The result is sorted lexically; versions
// are opaque and never compared semantically.
func PublishedVersions(root string, c Coordinate) ([]string, error) {
	entries, err := os.ReadDir(c.ArtifactDir(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v := Coordinate{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: e.Name()}
		if _, err := os.Stat(filepath.Join(v.Dir(root), v.FileName("", "pom"))); err == nil {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}
