package fitsfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Cache provides thread-safe caching of decoded FITS files so fixtures are
// read from disk once per process.
//
// Cached files are shared between callers and must be treated as read-only.
// Maps built from them copy the pixel data.
//
// # Example Usage
//
//	cache := fitsfile.NewCache()
//	f, err := cache.Load("testdata/aia_171_level1.fits")
//	if err != nil {
//	    return err
//	}
//	cache.Evict("testdata/aia_171_level1.fits") // Optional: free memory
type Cache struct {
	mu     sync.RWMutex
	files  map[string]*File
	onLoad func(path string)
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		files: make(map[string]*File),
	}
}

// Load returns the cached file for path or reads it with Open.
//
// The file is cached using the exact path string provided. Different paths to
// the same file (relative vs absolute) result in separate entries.
func (c *Cache) Load(path string) (*File, error) {
	c.mu.RLock()
	if f, ok := c.files[path]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	f, err := Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if cached, ok := c.files[path]; ok {
		f = cached
	} else {
		c.files[path] = f
	}
	hook := c.onLoad
	c.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	return f, nil
}

// Clear removes every cached file.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.files = make(map[string]*File)
	c.mu.Unlock()
}

// Evict removes path from the cache. Unknown paths are ignored.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.files, path)
	c.mu.Unlock()
}

// EvictFile removes every entry that names the file at name, whatever
// spelling of the path it was loaded under. It reports how many were removed.
func (c *Cache) EvictFile(name string) int {
	want := cleanPath(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for p := range c.files {
		if cleanPath(p) == want {
			delete(c.files, p)
			n++
		}
	}
	return n
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func (c *Cache) setOnLoad(fn func(path string)) {
	c.mu.Lock()
	c.onLoad = fn
	c.mu.Unlock()
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// Info summarises a FITS file without exposing its pixels.
type Info struct {
	// Width is NAXIS1 in pixels.
	Width int `json:"width"`

	// Height is NAXIS2 in pixels.
	Height int `json:"height"`

	// Compressed is true for gzip-compressed files (by extension).
	Compressed bool `json:"compressed"`

	// Keywords is the number of header cards kept.
	Keywords int `json:"keywords"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadInfo loads path through cache and reports its dimensions and size.
func LoadInfo(cache *Cache, path string) (*Info, error) {
	f, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &Info{
		Width:         f.Width,
		Height:        f.Height,
		Compressed:    strings.EqualFold(filepath.Ext(path), ".gz"),
		Keywords:      len(f.Header),
		FileSizeBytes: stat.Size(),
	}, nil
}
