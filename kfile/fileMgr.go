package kfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileMgr is the block device external collaborator the cache invokes via
// ReadAt/WriteAt (spec.md §6's block_device_rw). It owns a directory of
// backing files and assigns each one a small unsigned device id the cache
// can use as the Dev half of a BlockId, so the cache itself never has to
// know about filenames.
type FileMgr struct {
	dbDirectory string
	blocksize   int
	isNew       bool

	mu        sync.Mutex
	names     []string         // dev id -> filename
	byName    map[string]uint64 // filename -> dev id
	openFiles []*os.File       // dev id -> open handle, lazily populated

	blocksRead    int
	blocksWritten int
}

// NewFileMgr opens (creating if necessary) the database directory that will
// hold one backing file per registered device.
func NewFileMgr(dbDirectory string, blocksize int) (*FileMgr, error) {
	if blocksize <= 0 {
		return nil, fmt.Errorf("blocksize must be positive, got %d", blocksize)
	}
	fm := &FileMgr{
		dbDirectory: dbDirectory,
		blocksize:   blocksize,
		byName:      make(map[string]uint64),
	}

	info, err := os.Stat(dbDirectory)
	if os.IsNotExist(err) {
		fm.isNew = true
		if err = os.MkdirAll(dbDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dbDirectory, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to access directory %s: %w", dbDirectory, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %s is not a directory", dbDirectory)
	}

	files, err := os.ReadDir(dbDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory %s: %w", dbDirectory, err)
	}
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".tmp" {
			tempPath := filepath.Join(dbDirectory, file.Name())
			if err := os.Remove(tempPath); err != nil {
				return nil, fmt.Errorf("failed to remove temporary file %s: %w", tempPath, err)
			}
		}
	}

	return fm, nil
}

// Register returns the device id for name, assigning a fresh one the first
// time name is seen. Device ids are stable for the lifetime of the FileMgr.
func (fm *FileMgr) Register(name string) (uint64, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if dev, ok := fm.byName[name]; ok {
		return dev, nil
	}
	dev := uint64(len(fm.names))
	fm.names = append(fm.names, name)
	fm.openFiles = append(fm.openFiles, nil)
	fm.byName[name] = dev
	if _, err := fm.fileLocked(dev); err != nil {
		return 0, err
	}
	return dev, nil
}

// fileLocked returns the open *os.File for dev, opening it if needed.
// Caller must hold fm.mu.
func (fm *FileMgr) fileLocked(dev uint64) (*os.File, error) {
	if dev >= uint64(len(fm.names)) {
		return nil, fmt.Errorf("unknown device %d", dev)
	}
	if f := fm.openFiles[dev]; f != nil {
		return f, nil
	}
	path := filepath.Join(fm.dbDirectory, fm.names[dev])
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	fm.openFiles[dev] = f
	return f, nil
}

// ReadAt reads blockno's bytes from dev into buf, which must be exactly
// BlockSize() long. This is the synchronous, blocking read primitive the
// cache's Read operation invokes on a miss.
func (fm *FileMgr) ReadAt(dev, blockno uint64, buf []byte) error {
	if len(buf) != fm.blocksize {
		return fmt.Errorf("buffer size %d does not match blocksize %d", len(buf), fm.blocksize)
	}

	fm.mu.Lock()
	f, err := fm.fileLocked(dev)
	fm.mu.Unlock()
	if err != nil {
		return fmt.Errorf("read block %d on dev %d: %w", blockno, dev, err)
	}

	offset := int64(blockno) * int64(fm.blocksize)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read block %d on dev %d: %w", blockno, dev, err)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0 // reading past EOF yields a zero-filled block, like a sparse file would
	}

	fm.mu.Lock()
	fm.blocksRead++
	fm.mu.Unlock()
	return nil
}

// WriteAt writes buf (exactly BlockSize() bytes) to blockno on dev. This is
// the synchronous, blocking write primitive the cache's Write operation
// invokes.
func (fm *FileMgr) WriteAt(dev, blockno uint64, buf []byte) error {
	if len(buf) != fm.blocksize {
		return fmt.Errorf("buffer size %d does not match blocksize %d", len(buf), fm.blocksize)
	}

	fm.mu.Lock()
	f, err := fm.fileLocked(dev)
	fm.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write block %d on dev %d: %w", blockno, dev, err)
	}

	offset := int64(blockno) * int64(fm.blocksize)
	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("write block %d on dev %d: %w", blockno, dev, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync dev %d: %w", dev, err)
	}

	fm.mu.Lock()
	fm.blocksWritten++
	fm.mu.Unlock()
	return nil
}

// Append grows dev by one empty block and returns its block number.
func (fm *FileMgr) Append(dev uint64) (uint64, error) {
	fm.mu.Lock()
	f, err := fm.fileLocked(dev)
	if err != nil {
		fm.mu.Unlock()
		return 0, fmt.Errorf("append to dev %d: %w", dev, err)
	}
	stat, err := f.Stat()
	if err != nil {
		fm.mu.Unlock()
		return 0, fmt.Errorf("append to dev %d: %w", dev, err)
	}
	blockno := uint64(stat.Size()) / uint64(fm.blocksize)
	fm.mu.Unlock()

	empty := make([]byte, fm.blocksize)
	if err := fm.WriteAt(dev, blockno, empty); err != nil {
		return 0, fmt.Errorf("append to dev %d: %w", dev, err)
	}
	return blockno, nil
}

// Length returns the number of blocks currently stored on dev.
func (fm *FileMgr) Length(dev uint64) (uint64, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	f, err := fm.fileLocked(dev)
	if err != nil {
		return 0, err
	}
	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat dev %d: %w", dev, err)
	}
	return uint64(stat.Size()) / uint64(fm.blocksize), nil
}

// IsNew reports whether the database directory was created by this call to
// NewFileMgr rather than already existing.
func (fm *FileMgr) IsNew() bool { return fm.isNew }

// BlockSize returns the configured block size.
func (fm *FileMgr) BlockSize() int { return fm.blocksize }

// Close closes every open backing file.
func (fm *FileMgr) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	var firstErr error
	for dev, f := range fm.openFiles {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close dev %d (%s): %w", dev, fm.names[dev], err)
		}
		fm.openFiles[dev] = nil
	}
	return firstErr
}

// BlocksRead returns the total number of block reads served.
func (fm *FileMgr) BlocksRead() int {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.blocksRead
}

// BlocksWritten returns the total number of block writes served.
func (fm *FileMgr) BlocksWritten() int {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.blocksWritten
}
