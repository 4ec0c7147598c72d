package archive

import (
	"bytes"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// Unpack extracts data below dest, restoring directories and permission
// bits. Entries that would land outside dest are rejected.
func Unpack(data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errors.WrapError(err, errors.CategoryPackage, "invalid archive").Build()
	}
	for _, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		mode := f.Mode()
		if mode.IsDir() {
			if err := os.MkdirAll(target, mode.Perm()|0o700); err != nil {
				return errors.FromIO(err, errors.CategoryFileSystem, "create directory").WithContext("path", target).Build()
			}
			continue
		}
		if !mode.IsRegular() {
			return errors.PackageError("unsupported entry type").WithRetry(errors.RetryNever).WithContext("entry", f.Name).Build()
		}
		if err := extract(f, target, mode.Perm()); err != nil {
			return errors.FromIO(err, errors.CategoryFileSystem, "extract entry").WithContext("entry", f.Name).Build()
		}
	}
	return nil
}

func extract(f *zip.File, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func safeJoin(dest, name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(slashed) || hasParentRef(slashed) {
		return "", traversal(name)
	}
	target := filepath.Join(dest, filepath.FromSlash(path.Clean(slashed)))
	if rel, err := filepath.Rel(dest, target); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", traversal(name)
	}
	return target, nil
}

func hasParentRef(name string) bool {
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

func traversal(name string) error {
	return errors.PackageError("archive entry escapes destination").WithRetry(errors.RetryNever).WithContext("entry", name).Build()
}
