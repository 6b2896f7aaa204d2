// Package store manages the controller's durable image directory and the
// naming of stored transfer artifacts.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mlevkov/camlink/internal/shared"
)

// Ext is the fixed extension every stored artifact gets, regardless of the
// extension declared in the transfer header.
const Ext = ".jpg"

// Store owns one directory of received files. It hands out uniquely named
// files and remembers the most recently completed one so the scheduler can
// offer it for upload. It is used from the single scheduler goroutine and is
// not safe for concurrent use.
type Store struct {
	dir      string
	seq      int
	lastDone string
}

// New ensures dir exists and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage root.
func (s *Store) Dir() string { return s.dir }

// Create opens a new file for the transfer named in the header. The stored
// name is "<seq>_<base><Ext>" where seq is a per-process sequential
// disambiguator; the seq prefix doubles as the upload identifier. A missing
// base name falls back to a random one. Collisions with leftover files get a
// counter suffix, as the capture side does for its archive copies.
func (s *Store) Create(headerName string) (*os.File, string, error) {
	base := strings.TrimSuffix(filepath.Base(headerName), filepath.Ext(headerName))
	if base == "" || base == "." {
		base = uuid.NewString()
	}

	s.seq++
	name := fmt.Sprintf("%d_%s%s", s.seq, base, Ext)
	path := filepath.Join(s.dir, name)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%d_%s_%d%s", s.seq, base, counter, Ext)
		path = filepath.Join(s.dir, name)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o660)
	if err != nil {
		return nil, "", fmt.Errorf("%w: open %s: %v", shared.ErrorStorage, path, err)
	}
	return f, path, nil
}

// MarkDone records path as the latest complete, upload-eligible artifact.
// Callers must only mark files whose handle has been closed.
func (s *Store) MarkDone(path string) {
	s.lastDone = path
}

// Last returns the most recently completed file, if any.
func (s *Store) Last() (string, bool) {
	return s.lastDone, s.lastDone != ""
}
