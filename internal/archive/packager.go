package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// Epoch is the modification time stamped on every entry. It is the earliest
// time the DOS date format can represent.
var Epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// DigestPrefix names the hash algorithm in digest strings.
const DigestPrefix = "sha256:"

// Archive is a packaged tree.
type Archive struct {
	Data    []byte
	Digest  string
	Size    int64
	Entries int
}

// Packager writes zip archives.
type Packager struct {
	level int
}

// NewPackager returns a packager using the given flate level.
// Zero selects flate.DefaultCompression.
func NewPackager(level int) *Packager {
	if level == 0 {
		level = flate.DefaultCompression
	}
	return &Packager{level: level}
}

type entry struct {
	rel  string // '/'-separated, relative to the packaged root
	abs  string
	info fs.FileInfo
}

// Package archives every file and directory below root. Entries are nested
// under a folder called name and sorted by path so that identical trees
// produce identical bytes.
func (p *Packager) Package(ctx context.Context, root, name string) (*Archive, error) {
	entries, err := collect(root)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, p.level)
	})

	prefix := strings.Trim(name, "/")
	if err := writeDir(zw, prefix+"/", 0o755); err != nil {
		_ = zw.Close()
		return nil, packageFailure(err, "write root entry", root)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return nil, err
		}
		target := path.Join(prefix, e.rel)
		if e.info.IsDir() {
			err = writeDir(zw, target+"/", e.info.Mode())
		} else {
			err = writeFile(zw, target, e)
		}
		if err != nil {
			_ = zw.Close()
			return nil, packageFailure(err, "write entry", e.abs)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, packageFailure(err, "finalize archive", root)
	}

	data := buf.Bytes()
	return &Archive{
		Data:    data,
		Digest:  Digest(data),
		Size:    int64(len(data)),
		Entries: len(entries) + 1,
	}, nil
}

func collect(root string) ([]entry, error) {
	var entries []entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return errors.PackageError("symbolic links are not supported").WithRetry(errors.RetryNever).
				WithContext("path", p).Build()
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return errors.PackageError("unsupported file type").WithRetry(errors.RetryNever).
				WithContext("path", p).Build()
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		entries = append(entries, entry{rel: filepath.ToSlash(rel), abs: p, info: info})
		return nil
	})
	if err != nil {
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, packageFailure(err, "walk tree", root)
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.rel, b.rel) })
	return entries, nil
}

func writeDir(zw *zip.Writer, name string, mode fs.FileMode) error {
	h := &zip.FileHeader{Name: name, Method: zip.Store, Modified: Epoch}
	h.SetMode(fs.ModeDir | mode.Perm())
	_, err := zw.CreateHeader(h)
	return err
}

func writeFile(zw *zip.Writer, name string, e entry) error {
	h := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: Epoch}
	h.SetMode(e.info.Mode().Perm())
	w, err := zw.CreateHeader(h)
	if err != nil {
		return err
	}
	f, err := os.Open(e.abs)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func packageFailure(err error, op, p string) error {
	return errors.FromIO(err, errors.CategoryPackage, op+" failed").
		WithContext("path", p).Build()
}

// Digest returns "sha256:<hex>" over data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return DigestPrefix + hex.EncodeToString(sum[:])
}

// Hex strips the algorithm prefix from a digest.
func Hex(digest string) string {
	return strings.TrimPrefix(digest, DigestPrefix)
}

// Verify reports whether data matches digest.
func Verify(data []byte, digest string) bool {
	return Digest(data) == digest
}
