// Package repository publishes server archives into a local Maven-layout
// repository.
//
// The layout is the minimum a Maven-compatible resolver needs to satisfy a
// dependency on group:artifact:version from a file:// repository:
//
//	<root>/<group with dots as slashes>/<artifact>/
//	    maven-metadata.xml
//	    <version>/
//	        <artifact>-<version>.jar
//	        <artifact>-<version>.pom
//	        <artifact>-<version>-sources.jar
//
// Publishing is idempotent: the same (coordinate, archive) pair published
// twice yields byte-identical files. Nothing checks whether a version is
// "already published"; files are overwritten in place.
//
// The package performs no locking. Two concurrent publishes of the same
// coordinate race, and serializing them is up to the caller.
package repository

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// Packaging is the only packaging type this repository produces.
const Packaging = "jar"

// SourcesClassifier is the classifier of the decompiled sources artifact.
const SourcesClassifier = "sources"

// Coordinate identifies a published artifact.
type Coordinate struct {
	GroupID    string
	ArtifactID string
	Version    string
}

// Validate checks that every component is usable as a path segment.
// The version is opaque, so only what could escape or corrupt the
// repository layout is rejected.
func (c Coordinate) Validate() error {
	if err := errors.ValidateGroupID(c.GroupID); err != nil {
		return err
	}
	if err := errors.ValidateSegment("artifact id", c.ArtifactID); err != nil {
		return err
	}
	return errors.ValidateSegment("version", c.Version)
}

// ArtifactDir returns the version-independent artifact directory.
func (c Coordinate) ArtifactDir(root string) string {
	parts := append([]string{root}, strings.Split(c.GroupID, ".")...)
	return filepath.Join(append(parts, c.ArtifactID)...)
}

// Dir returns the directory holding this version's files.
func (c Coordinate) Dir(root string) string {
	return filepath.Join(c.ArtifactDir(root), c.Version)
}

// RelPath returns the repository-relative directory with forward slashes,
// as a resolver would request it.
func (c Coordinate) RelPath() string {
	return strings.ReplaceAll(c.GroupID, ".", "/") + "/" + c.ArtifactID + "/" + c.Version + "/"
}

// FileName returns "<artifact>-<version>[-<classifier>].<ext>".
func (c Coordinate) FileName(classifier, ext string) string {
	name := c.ArtifactID + "-" + c.Version
	if classifier != "" {
		name += "-" + classifier
	}
	return name + "." + ext
}

// Path joins Dir and FileName.
func (c Coordinate) Path(root, classifier, ext string) string {
	return filepath.Join(c.Dir(root), c.FileName(classifier, ext))
}

// Notation returns "group:artifact:version".
func (c Coordinate) Notation() string {
	return fmt.Sprintf("%s:%s:%s", c.GroupID, c.ArtifactID, c.Version)
}

// String implements fmt.Stringer.
func (c Coordinate) String() string { return c.Notation() }
