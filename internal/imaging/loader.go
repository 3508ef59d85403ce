package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
)

// LabelCache provides thread-safe caching of parsed label tables so the MCP
// server and batch runner do not re-parse the same capture.
//
// Tables are keyed by the exact path string passed to Load. A label CSV for
// a 640x640 capture holds ~400k rows, so long-running processes should call
// Evict once a location is finished.
//
//	cache := imaging.NewLabelCache(640)
//	labels, err := cache.Load("/data/pano/side1/pitch0_heading90_pixel_categories.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict(path)
type LabelCache struct {
	mu     sync.RWMutex
	size   int
	tables map[string]LabelTable
}

// NewLabelCache creates an empty cache. Class-index images are resized to
// size x size on load; size <= 0 keeps their native resolution.
func NewLabelCache(size int) *LabelCache {
	return &LabelCache{
		size:   size,
		tables: make(map[string]LabelTable),
	}
}

// Load retrieves a label table from the cache or reads it from disk.
//
// Supported inputs:
//   - ".csv": rows of x,y,label as written by the segmentation step
//   - ".png": 8-bit class-index map (gray level = Cityscapes training id)
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error for any other extension
//   - Returns error if a CSV row is malformed
func (c *LabelCache) Load(path string) (LabelTable, error) {
	c.mu.RLock()
	if t, ok := c.tables[path]; ok {
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	t, err := ReadLabels(path, c.size)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tables[path] = t
	c.mu.Unlock()

	return t, nil
}

// Clear removes all tables from the cache.
func (c *LabelCache) Clear() {
	c.mu.Lock()
	c.tables = make(map[string]LabelTable)
	c.mu.Unlock()
}

// Evict removes one table by the path it was loaded with.
func (c *LabelCache) Evict(path string) {
	c.mu.Lock()
	delete(c.tables, path)
	c.mu.Unlock()
}

// Len reports how many tables are cached.
func (c *LabelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// ReadLabels reads a label table without caching. See LabelCache.Load for
// the accepted formats.
func ReadLabels(path string, size int) (LabelTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open labels: %w", err)
		}
		defer f.Close()
		t, err := ReadLabelCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		return t, nil
	case ".png":
		img, err := imgio.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open class map: %w", err)
		}
		return FromClassMap(NormalizeClassMap(img, size)), nil
	default:
		return nil, fmt.Errorf("unsupported label format %q", filepath.Ext(path))
	}
}

// LabelInfo summarizes a label table.
type LabelInfo struct {
	// Width and Height are the implied grid size (max coordinate + 1).
	Width  int `json:"width"`
	Height int `json:"height"`

	// Pixels is the number of rows in the table.
	Pixels int `json:"pixels"`

	// Classes maps class name to pixel count, for classes that occur.
	Classes map[string]int `json:"classes"`

	// Dominant lists class names by descending pixel count.
	Dominant []string `json:"dominant"`
}

// DescribeLabels loads a table through the cache and summarizes it.
func DescribeLabels(cache *LabelCache, path string) (*LabelInfo, error) {
	t, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	w, h := t.Size()
	counts := make(map[string]int)
	for _, p := range t {
		counts[p.Class.String()]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	return &LabelInfo{
		Width:    w,
		Height:   h,
		Pixels:   len(t),
		Classes:  counts,
		Dominant: names,
	}, nil
}
