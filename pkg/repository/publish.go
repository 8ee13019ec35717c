package repository

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// Publisher writes artifacts into the repository rooted at Root.
type Publisher struct {
	Root   string
	Logger *log.Logger
}

// NewPublisher creates a publisher for root. A nil logger discards output.
func NewPublisher(root string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Publisher{Root: root, Logger: logger}
}

// Published describes the files written by Publish.
type Published struct {
	Coordinate   Coordinate
	Dir          string // version directory
	JarPath      string
	POMPath      string
	MetadataPath string
	SHA256       string // hex digest of the published jar
	Size         int64
	Versions     []string // versions listed in maven-metadata.xml
}

// Publish copies the archive at jarPath into c's version directory and
// writes its descriptor and the artifact-level metadata. Existing files are
// overwritten. Any failure is PUBLISH_FAILED.
func (p *Publisher) Publish(c Coordinate, jarPath string) (*Published, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodePublish, err, "invalid coordinate %s", c)
	}
	info, err := os.Stat(jarPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePublish, err, "stat %s", jarPath)
	}

	dir := c.Dir(p.Root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodePublish, err, "create %s", dir)
	}

	out := &Published{
		Coordinate: c,
		Dir:        dir,
		JarPath:    filepath.Join(dir, c.FileName("", "jar")),
		POMPath:    filepath.Join(dir, c.FileName("", "pom")),
	}

	out.SHA256, out.Size, err = copyFile(jarPath, out.JarPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePublish, err, "copy %s", jarPath)
	}
	p.Logger.Debug("copied archive", "dst", out.JarPath, "sha256", out.SHA256)

	if err := writeFile(out.POMPath, POM(c)); err != nil {
		return nil, errors.Wrap(errors.ErrCodePublish, err, "write descriptor")
	}

	// Stamp the index with the archive's own mtime so republishing the same
	// archive leaves it unchanged.
	out.MetadataPath, out.Versions, err = p.updateMetadata(c, info)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePublish, err, "write %s", MetadataFile)
	}

	p.Logger.Info("published artifact", "coordinate", c.Notation(), "dir", dir)
	return out, nil
}

func (p *Publisher) updateMetadata(c Coordinate, src os.FileInfo) (string, []string, error) {
	versions, err := PublishedVersions(p.Root, c)
	if err != nil {
		return "", nil, err
	}
	data, err := Metadata(c, versions, src.ModTime())
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(c.ArtifactDir(p.Root), MetadataFile)
	if err := writeFile(path, data); err != nil {
		return "", nil, err
	}
	return path, versions, nil
}

// Install moves a finished file into the repository at dst, replacing any
// existing file. It renames when possible and falls back to copy+remove
// across filesystems. Failures are PUBLISH_FAILED.
func Install(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrap(errors.ErrCodePublish, err, "create %s", filepath.Dir(dst))
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if _, _, err := copyFile(src, dst); err != nil {
		return errors.Wrap(errors.ErrCodePublish, err, "install %s", dst)
	}
	if err := os.Remove(src); err != nil {
		return errors.Wrap(errors.ErrCodePublish, err, "remove %s", src)
	}
	return nil
}

// copyFile copies src to dst through a temporary sibling, so a reader never
// sees a half-written dst. It returns the SHA-256 and size of the content.
func copyFile(src, dst string) (string, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	sum, n, err := digestCopy(tmp, in)
	if err != nil {
		tmp.Close()
		return "", 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, err
	}
	return sum, n, nil
}

func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
