// Package objectstore is the Object Gateway: it uploads archives and media
// to the object storage bucket and downloads them back.
//
// Two implementations share the Gateway contract. LegacyGateway speaks the
// HMAC-SHA1 signed protocol directly over net/http; SDKGateway goes through
// aws-sdk-go-v2 for S3-compatible backends that require SigV4.
package objectstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/filex"
)

// Bucket directories.
const (
	DirArchives = "devicezip"
	DirMedia    = "images"
)

const (
	TypeZip   = "application/zip"
	TypeJPEG  = "image/jpeg"
	TypePNG   = "image/png"
	TypeMP4   = "video/mp4"
	TypeOctet = "application/octet-stream"
)

var (
	ErrChecksumMismatch = errors.New("uploaded object checksum mismatch")
	ErrRejected         = errors.New("object storage rejected the request")
)

// Object describes one outbound upload. It is derived from a ledger record
// right before the upload and never persisted.
type Object struct {
	Key         string
	ContentType string
	MD5         string // base64
	Public      bool
	Path        string
}

// Result is what the storage returned for a successful Put.
type Result struct {
	ETag string
}

type Gateway interface {
	Put(ctx context.Context, obj Object) (*Result, error)
	Get(ctx context.Context, key, dst string) error
}

func ArchiveKey(filename string) string { return DirArchives + "/" + filename }
func MediaKey(filename string) string   { return DirMedia + "/" + filename }

// ContentType maps a file extension to the declared upload type.
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return TypeZip
	case ".jpg", ".jpeg":
		return TypeJPEG
	case ".png":
		return TypePNG
	case ".mp4":
		return TypeMP4
	default:
		return TypeOctet
	}
}

// Describe computes the upload description of the file at path.
func Describe(path, key string, public bool) (Object, error) {
	sum, err := filex.FileMD5(path)
	if err != nil {
		return Object{}, fmt.Errorf("failed to digest %s: %w", path, err)
	}
	return Object{
		Key:         key,
		ContentType: ContentType(path),
		MD5:         base64.StdEncoding.EncodeToString(sum),
		Public:      public,
		Path:        path,
	}, nil
}

// verifyETag compares an ETag header with the base64 digest of the upload.
func verifyETag(etag, md5b64 string) error {
	sum, err := base64.StdEncoding.DecodeString(md5b64)
	if err != nil {
		return fmt.Errorf("invalid digest %q: %w", md5b64, err)
	}
	got := strings.Trim(etag, `"`)
	if !strings.EqualFold(got, fmt.Sprintf("%x", sum)) {
		return fmt.Errorf("%w: etag %q", ErrChecksumMismatch, got)
	}
	return nil
}
