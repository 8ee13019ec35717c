// Package jartest builds small JAR files for tests.
package jartest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

// Entry is one file (or directory, when Name ends in "/") in a test archive.
type Entry struct {
	Name string
	Body []byte
}

// Stamp is the modification time written for every generated entry.
var Stamp = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// Manifest renders attrs as a manifest body. Keys are written in sorted
// order after Manifest-Version.
func Manifest(attrs map[string]string) []byte {
	var buf bytes.Buffer
	buf.WriteString("Manifest-Version: 1.0\r\n")
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, attrs[k])
	}
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// Write creates a zip archive at path containing entries in the given order.
func Write(t testing.TB, path string, entries []Entry) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: Stamp})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(e.Body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

// ServerJar writes a jar with a manifest carrying version under
// Implementation-Version, followed by entries.
func ServerJar(t testing.TB, path, version string, entries ...Entry) {
	t.Helper()
	all := []Entry{
		{Name: "META-INF/"},
		{Name: "META-INF/MANIFEST.MF", Body: Manifest(map[string]string{"Implementation-Version": version})},
	}
	Write(t, path, append(all, entries...))
}

// Names returns the entry names of the archive at path, in stored order.
func Names(t testing.TB, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

// ReadEntry returns the body of the named entry.
func ReadEntry(t testing.TB, path, name string) []byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return nil
}
