// Package archive does the archive surgery around decompilation: it cuts a
// server jar down to one namespace before decompiling, and packs the
// decompiled tree back into a sources jar afterwards.
//
// Both directions are reproducible. The filter copies entries in the
// source's stored order with their original headers and timestamps; the
// packager sorts entries by path and stamps them with a fixed time. Equal
// inputs therefore give byte-identical outputs.
package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/serverdep/pkg/errors"
)

// ClassSuffix marks compiled entries.
const ClassSuffix = ".class"

// FilterResult reports what Filter copied.
type FilterResult struct {
	Scanned int      // entries in the source archive
	Kept    []string // names written to the output, in order
}

// Matches reports whether an entry belongs in the filtered archive: a file
// (not a directory) under prefix with the compiled-entry suffix.
func Matches(name, prefix string) bool {
	if strings.HasSuffix(name, "/") {
		return false
	}
	return strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ClassSuffix)
}

// Filter writes to dst a copy of the archive at src holding only the
// entries accepted by [Matches]. Entries are copied raw, without
// recompression, so names, timestamps and compressed bytes are preserved.
// Errors are FILTER_FAILED; a partial dst is removed.
func Filter(ctx context.Context, src, prefix, dst string) (res *FilterResult, err error) {
	if err := errors.ValidateEntryPrefix(prefix); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilter, err, "invalid prefix")
	}

	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilter, err, "open %s", src)
	}
	defer zr.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilter, err, "create %s", filepath.Dir(dst))
	}
	out, err := os.Create(dst)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilter, err, "create %s", dst)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	res = &FilterResult{Scanned: len(zr.File)}
	zw := zip.NewWriter(out)
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFilter, err, "filter interrupted")
		}
		if !Matches(f.Name, prefix) {
			continue
		}
		if err := zw.Copy(f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFilter, err, "copy entry %s", f.Name)
		}
		res.Kept = append(res.Kept, f.Name)
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilter, err, "finish %s", dst)
	}
	if err := out.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilter, err, "close %s", dst)
	}
	return res, nil
}
