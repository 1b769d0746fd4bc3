// Package cache keeps extraction results so re-running a tract does not pay for the
// same provider call twice.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/landchain/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Stats counts lookups against a cache layer
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// CacheKey derives a key from the extractor identity and the document text. Parts are
// length-prefixed so ("ab", "c") and ("a", "bc") never collide.
func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return "landchain:v1:" + hex.EncodeToString(h.Sum(nil))
}

// GetRows loads cached extraction rows
func GetRows(c Cache, key string) ([]model.RawRow, bool) {
	data, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	var rows []model.RawRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// SetRows stores extraction rows
func SetRows(c Cache, key string, rows []model.RawRow, ttl time.Duration) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	return c.Set(key, data, ttl)
}
