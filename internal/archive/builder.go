// Package archive packages a survey instance into the single-entry zip that
// is uploaded to object storage.
package archive

import (
	"archive/zip"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/adler32"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

const (
	Suffix    = ".zip"
	EntryName = "data.txt"
)

var ErrInvalidArchive = errors.New("invalid archive")

// Result describes a finished archive.
type Result struct {
	Path string
	// Checksum is the Adler-32 of the compressed bytes, taken while writing.
	Checksum uint32
	// MD5 is the digest of the finished file.
	MD5 []byte
}

func (r *Result) Filename() string { return filepath.Base(r.Path) }

func (r *Result) MD5Base64() string { return base64.StdEncoding.EncodeToString(r.MD5) }

func (r *Result) MD5Hex() string { return hex.EncodeToString(r.MD5) }

type Builder struct {
	dir        string
	serializer Serializer
}

// NewBuilder writes archives into dir. A nil serializer selects
// JSONSerializer.
func NewBuilder(dir string, s Serializer) *Builder {
	if s == nil {
		s = JSONSerializer
	}
	return &Builder{dir: dir, serializer: s}
}

// Path returns where the archive of inst lives.
func (b *Builder) Path(inst *models.SurveyInstance) string {
	return filepath.Join(b.dir, inst.UUID+Suffix)
}

// Build serializes inst and writes it to <dir>/<uuid>.zip. The file appears
// under its final name only after it was fully written and synced.
func (b *Builder) Build(inst *models.SurveyInstance, responses []*models.Response) (*Result, error) {
	if inst.UUID == "" {
		return nil, errors.New("instance has no uuid")
	}

	doc, err := b.serializer.Serialize(inst, responses)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize instance %s: %w", inst.UUID, err)
	}

	tmp, err := os.CreateTemp(b.dir, inst.UUID+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	checksum := adler32.New()
	digest := md5.New()

	if err := writeZip(io.MultiWriter(tmp, checksum, digest), doc); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		tmp = nil
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}
	tmp = nil

	final := b.Path(inst)
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to publish archive: %w", err)
	}

	return &Result{Path: final, Checksum: checksum.Sum32(), MD5: digest.Sum(nil)}, nil
}

func writeZip(w io.Writer, doc []byte) error {
	zw := zip.NewWriter(w)

	entry, err := zw.CreateHeader(&zip.FileHeader{Name: EntryName, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := entry.Write(doc); err != nil {
		return err
	}
	return zw.Close()
}

// Extract returns the document stored in the archive at path.
func Extract(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	if len(zr.File) != 1 || zr.File[0].Name != EntryName {
		return nil, fmt.Errorf("%w: expected single %s entry", ErrInvalidArchive, EntryName)
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
