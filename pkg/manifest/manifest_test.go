package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/serverdep/internal/jartest"
	"github.com/matzehuels/serverdep/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  string
		found bool
	}{
		{
			name:  "crlf",
			input: "Manifest-Version: 1.0\r\nImplementation-Version: 1.4.2\r\n\r\n",
			key:   "Implementation-Version",
			want:  "1.4.2",
			found: true,
		},
		{
			name:  "lf",
			input: "Manifest-Version: 1.0\nImplementation-Version: 2.0\n",
			key:   "Implementation-Version",
			want:  "2.0",
			found: true,
		},
		{
			name:  "bare cr",
			input: "Manifest-Version: 1.0\rImplementation-Version: 3.0\r",
			key:   "Implementation-Version",
			want:  "3.0",
			found: true,
		},
		{
			name:  "case insensitive name",
			input: "implementation-version: 1.0\n",
			key:   "Implementation-Version",
			want:  "1.0",
			found: true,
		},
		{
			name:  "continuation line",
			input: "Implementation-Version: 2026.01.13-dcad87\n 78f-long\nMain-Class: x\n",
			key:   "Implementation-Version",
			want:  "2026.01.13-dcad8778f-long",
			found: true,
		},
		{
			name:  "stops at first blank line",
			input: "Manifest-Version: 1.0\n\nName: com/example/\nImplementation-Version: 9.9\n",
			key:   "Implementation-Version",
			found: false,
		},
		{
			name:  "last duplicate wins",
			input: "Implementation-Version: 1\nImplementation-Version: 2\n",
			key:   "Implementation-Version",
			want:  "2",
			found: true,
		},
		{
			name:  "byte order mark",
			input: "\ufeffImplementation-Version: 5\n",
			key:   "Implementation-Version",
			want:  "5",
			found: true,
		},
		{
			name:  "value keeps inner colon",
			input: "Created-By: Apache Maven: 3.9\n",
			key:   "Created-By",
			want:  "Apache Maven: 3.9",
			found: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			got, ok := m.Get(tt.key)
			if ok != tt.found {
				t.Fatalf("Get(%q) found = %v, want %v", tt.key, ok, tt.found)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestParseNames(t *testing.T) {
	m, err := Parse(strings.NewReader("Manifest-Version: 1.0\nMain-Class: a.B\nmain-class: c.D\n"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	names := m.Names()
	if len(names) != 2 || names[0] != "Manifest-Version" || names[1] != "Main-Class" {
		t.Errorf("Names() = %v", names)
	}
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		" leading continuation\n",
		"no colon here\n",
		": empty name\n",
	}
	for _, in := range inputs {
		if _, err := Parse(strings.NewReader(in)); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestReadVersion(t *testing.T) {
	dir := t.TempDir()

	t.Run("trimmed", func(t *testing.T) {
		path := filepath.Join(dir, "ok.jar")
		jartest.Write(t, path, []jartest.Entry{
			{Name: "META-INF/MANIFEST.MF", Body: []byte("Manifest-Version: 1.0\r\nImplementation-Version:   1.4.2  \r\n\r\n")},
		})
		v, err := ReadVersion(path, DefaultVersionAttribute)
		if err != nil {
			t.Fatalf("ReadVersion() error: %v", err)
		}
		if v != "1.4.2" {
			t.Errorf("ReadVersion() = %q, want %q", v, "1.4.2")
		}
	})

	t.Run("default attribute", func(t *testing.T) {
		path := filepath.Join(dir, "default.jar")
		jartest.ServerJar(t, path, "7.0")
		v, err := ReadVersion(path, "")
		if err != nil {
			t.Fatalf("ReadVersion() error: %v", err)
		}
		if v != "7.0" {
			t.Errorf("ReadVersion() = %q, want 7.0", v)
		}
	})

	t.Run("custom attribute", func(t *testing.T) {
		path := filepath.Join(dir, "custom.jar")
		jartest.Write(t, path, []jartest.Entry{
			{Name: "META-INF/MANIFEST.MF", Body: jartest.Manifest(map[string]string{"Build-Version": "b42"})},
		})
		v, err := ReadVersion(path, "Build-Version")
		if err != nil {
			t.Fatalf("ReadVersion() error: %v", err)
		}
		if v != "b42" {
			t.Errorf("ReadVersion() = %q, want b42", v)
		}
	})

	t.Run("lower case entry name", func(t *testing.T) {
		path := filepath.Join(dir, "lower.jar")
		jartest.Write(t, path, []jartest.Entry{
			{Name: "meta-inf/manifest.mf", Body: jartest.Manifest(map[string]string{"Implementation-Version": "3"})},
		})
		v, err := ReadVersion(path, DefaultVersionAttribute)
		if err != nil {
			t.Fatalf("ReadVersion() error: %v", err)
		}
		if v != "3" {
			t.Errorf("ReadVersion() = %q, want 3", v)
		}
	})
}

func TestReadVersionErrors(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "not.jar")
	if err := os.WriteFile(notZip, []byte("definitely not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	noManifest := filepath.Join(dir, "nomanifest.jar")
	jartest.Write(t, noManifest, []jartest.Entry{{Name: "com/example/A.class", Body: []byte{0xca, 0xfe}}})

	noAttr := filepath.Join(dir, "noattr.jar")
	jartest.Write(t, noAttr, []jartest.Entry{
		{Name: "META-INF/MANIFEST.MF", Body: jartest.Manifest(map[string]string{"Main-Class": "a.B"})},
	})

	blank := filepath.Join(dir, "blank.jar")
	jartest.Write(t, blank, []jartest.Entry{
		{Name: "META-INF/MANIFEST.MF", Body: []byte("Implementation-Version:    \n")},
	})

	tests := []struct {
		name string
		path string
		code errors.Code
	}{
		{"missing file", filepath.Join(dir, "absent.jar"), errors.ErrCodeMissingArchive},
		{"directory", dir, errors.ErrCodeMissingArchive},
		{"not a zip", notZip, errors.ErrCodeInvalidArchive},
		{"no manifest", noManifest, errors.ErrCodeMissingMetadata},
		{"no attribute", noAttr, errors.ErrCodeMissingVersion},
		{"blank attribute", blank, errors.ErrCodeMissingVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadVersion(tt.path, DefaultVersionAttribute)
			if err == nil {
				t.Fatal("ReadVersion() should fail")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadVersion() code = %v, want %v (%v)", errors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestReadVersionNoWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noattr.jar")
	jartest.Write(t, path, []jartest.Entry{
		{Name: "META-INF/MANIFEST.MF", Body: jartest.Manifest(map[string]string{"Main-Class": "a.B"})},
	})

	before, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ReadVersion(path, DefaultVersionAttribute); err == nil {
		t.Fatal("expected MISSING_VERSION")
	}
	after, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Errorf("ReadVersion wrote files: before %d entries, after %d", len(before), len(after))
	}
}
