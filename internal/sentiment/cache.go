package sentiment

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultCacheTTL        = 30 * time.Minute
	defaultCacheMaxEntries = 10000
)

// cacheOptions bounds the logit cache. Zero values select the defaults; an
// empty Dir disables the disk tier.
type cacheOptions struct {
	Dir        string
	TTL        time.Duration
	MaxEntries int
}

// logitCache keeps model outputs in memory for TTL, holding at most
// maxEntries, and, when dir is set, on disk as a little-endian
// length-prefixed float32 vector.
type logitCache struct {
	mu         sync.Mutex
	mem        *gocache.Cache
	maxEntries int
	dir        string
}

func newLogitCache(opts cacheOptions) *logitCache {
	if opts.TTL <= 0 {
		opts.TTL = defaultCacheTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultCacheMaxEntries
	}
	return &logitCache{
		mem:        gocache.New(opts.TTL, opts.TTL/2+time.Second),
		maxEntries: opts.MaxEntries,
		dir:        opts.Dir,
	}
}

func (c *logitCache) get(key string) ([]float32, bool) {
	v, ok := c.mem.Get(key)
	if !ok {
		return nil, false
	}
	return cloneVector(v.([]float32)), true
}

// put stores v unless the cache is full of live entries.
func (c *logitCache) put(key string, v []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mem.Get(key); !ok && c.mem.ItemCount() >= c.maxEntries {
		c.mem.DeleteExpired()
		if c.mem.ItemCount() >= c.maxEntries {
			return
		}
	}
	c.mem.SetDefault(key, cloneVector(v))
}

func (c *logitCache) size() int {
	return c.mem.ItemCount()
}

func (c *logitCache) reset() {
	c.mem.Flush()
}

func (c *logitCache) load(key string) ([]float32, bool, error) {
	if c.dir == "" {
		return nil, false, nil
	}
	path := filepath.Join(c.dir, key+".bin")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) < 4 {
		return nil, false, fmt.Errorf("cache file broken: %s", path)
	}
	length := binary.LittleEndian.Uint32(data[:4])
	need := int(length) * 4
	if len(data) != 4+need {
		return nil, false, fmt.Errorf("cache length mismatch: %s", path)
	}
	vec := make([]float32, int(length))
	if err := binary.Read(bytes.NewReader(data[4:]), binary.LittleEndian, vec); err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *logitCache) save(key string, v []float32) error {
	if c.dir == "" {
		return nil
	}
	path := filepath.Join(c.dir, key+".bin")
	tmp := path + ".tmp"
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(v)))
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cacheKey(modelID, text string) string {
	h := sha1.Sum([]byte(modelID + "|" + text))
	return hex.EncodeToString(h[:])
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
