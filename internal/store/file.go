package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a Store persisted to a flat file on disk. The whole image is
// loaded at open and rewritten (atomically, via rename) after each mutating
// call. At ~1 write per minute worst case this is comfortably within the
// endurance of any SD card or flash filesystem.
type FileStore struct {
	mu     sync.Mutex
	path   string
	buf    [Size]byte
	writes int
	erases int
}

// OpenFileStore loads (or creates) the store image at path.
// A missing file yields a fully-unset image; a short or oversized file is
// treated as corrupt and reset rather than reported as an error.
func OpenFileStore(path string) (*FileStore, error) {
	f := &FileStore{path: path}
	for i := range f.buf {
		f.buf[i] = Unset
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if len(data) == Size {
		copy(f.buf[:], data)
	}
	return f, nil
}

// ReadByte returns the byte at addr, or Unset if out of range.
func (f *FileStore) ReadByte(addr uint16) byte {
	if addr >= Size {
		return Unset
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf[addr]
}

// UpdateByte writes value at addr only if changed, then persists the image.
func (f *FileStore) UpdateByte(addr uint16, value byte) bool {
	if addr >= Size {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buf[addr] == value {
		return false
	}
	f.buf[addr] = value
	f.writes++
	f.flushLocked()
	return true
}

// EraseByte restores addr to Unset, then persists the image.
func (f *FileStore) EraseByte(addr uint16) bool {
	if addr >= Size {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buf[addr] == Unset {
		return false
	}
	f.buf[addr] = Unset
	f.erases++
	f.flushLocked()
	return true
}

// Counters returns the number of actual writes and erases since open.
func (f *FileStore) Counters() (writes, erases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes, f.erases
}

// flushLocked writes the image to a temp file and renames it into place so a
// crash mid-write never leaves a torn image. Failures are swallowed: the
// controller must keep running on a read-only or full filesystem, and the
// in-memory image stays authoritative for the process lifetime.
func (f *FileStore) flushLocked() {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, f.buf[:], 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, f.path)
}

// DefaultPath returns the conventional store location under dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "trv-store.bin")
}
