package filex

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Store lays out the durable on-device directories for archives and media.
type Store struct {
	ArchiveDir string
	MediaDir   string
}

// NewStore creates <root>/archives and <root>/media.
func NewStore(root string) (*Store, error) {
	archives, err := EnsureDir(filepath.Join(root, "archives"))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare archive dir: %w", err)
	}
	media, err := EnsureDir(filepath.Join(root, "media"))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare media dir: %w", err)
	}
	return &Store{ArchiveDir: archives, MediaDir: media}, nil
}

func (s *Store) ArchivePath(name string) string {
	return filepath.Join(s.ArchiveDir, filepath.Base(name))
}

// MediaPath resolves a media reference relative to the media dir. Absolute
// references are returned unchanged.
func (s *Store) MediaPath(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(s.MediaDir, filepath.FromSlash(ref))
}

// MediaRef turns a media answer into the slash separated reference stored
// in the ledger: relative to the media dir when the file lives under it,
// the bare file name otherwise.
func (s *Store) MediaRef(answer string) string {
	p := filepath.Clean(filepath.FromSlash(answer))
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(s.MediaDir, p)
		if err != nil {
			return filepath.Base(p)
		}
		p = rel
	}
	if p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return filepath.Base(p)
	}
	return filepath.ToSlash(p)
}
