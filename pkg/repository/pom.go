package repository

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// pomTemplate is the project descriptor written next to every published
// jar. Resolvers only read the coordinate and packaging, but the exact text
// is kept stable so republishing never changes the file.
const pomTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<project xsi:schemaLocation="http://maven.apache.org/POM/4.0.0 http://maven.apache.org/xsd/maven-4.0.0.xsd"
         xmlns="http://maven.apache.org/POM/4.0.0"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
    <modelVersion>4.0.0</modelVersion>
    <groupId>%s</groupId>
    <artifactId>%s</artifactId>
    <version>%s</version>
    <packaging>%s</packaging>
</project>
`

// POM renders the project descriptor for c.
func POM(c Coordinate) []byte {
	return []byte(fmt.Sprintf(pomTemplate,
		escapeText(c.GroupID),
		escapeText(c.ArtifactID),
		escapeText(c.Version),
		Packaging))
}

func escapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// pomProject is the subset of a descriptor read back by ReadPOM.
type pomProject struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Packaging  string `xml:"packaging"`
}

// ReadPOM parses the coordinate and packaging out of a descriptor.
func ReadPOM(data []byte) (Coordinate, string, error) {
	var p pomProject
	if err := xml.Unmarshal(data, &p); err != nil {
		return Coordinate{}, "", err
	}
	return Coordinate{GroupID: p.GroupID, ArtifactID: p.ArtifactID, Version: p.Version}, p.Packaging, nil
}
