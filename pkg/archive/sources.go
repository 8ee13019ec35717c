package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// SourceSuffix marks source files in the decompiled tree.
const SourceSuffix = ".java"

// EntryTime is stamped on every packaged entry. It is the earliest time the
// zip DOS date field can hold without tools treating it as unset.
var EntryTime = time.Date(1980, 2, 1, 0, 0, 0, 0, time.UTC)

// SourceFile is one file selected for packaging.
type SourceFile struct {
	Path  string // on disk
	Entry string // archive name: root-relative, forward slashes
}

// CollectSources walks root and returns every source file, sorted by entry
// name. Entry names never depend on the host path separator.
func CollectSources(root string) ([]SourceFile, error) {
	var files []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), SourceSuffix) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, SourceFile{Path: path, Entry: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Entry < files[j].Entry })
	return files, nil
}

// PackageSources archives every source file under root into dst and
// returns the number of entries written. Non-source files are skipped.
// Errors are PACKAGE_FAILED, and a partial dst is removed so it can never
// be mistaken for a finished artifact.
func PackageSources(ctx context.Context, root, dst string) (n int, err error) {
	files, err := CollectSources(root)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePackage, err, "walk %s", root)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, errors.Wrap(errors.ErrCodePackage, err, "create %s", filepath.Dir(dst))
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePackage, err, "create %s", dst)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	zw := zip.NewWriter(out)
	for _, sf := range files {
		if err := ctx.Err(); err != nil {
			return 0, errors.Wrap(errors.ErrCodePackage, err, "packaging interrupted")
		}
		if err := addFile(zw, sf); err != nil {
			return 0, errors.Wrap(errors.ErrCodePackage, err, "add %s", sf.Entry)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(errors.ErrCodePackage, err, "finish %s", dst)
	}
	if err := out.Close(); err != nil {
		return 0, errors.Wrap(errors.ErrCodePackage, err, "close %s", dst)
	}
	return len(files), nil
}

func addFile(zw *zip.Writer, sf SourceFile) error {
	f, err := os.Open(sf.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     sf.Entry,
		Method:   zip.Deflate,
		Modified: EntryTime,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
