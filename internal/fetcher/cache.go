package fetcher

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/coocood/freecache"
)

// DefaultCacheSize is the freecache arena used for page bodies.
const DefaultCacheSize = 16 * 1024 * 1024

// freecache rejects entries above 1/1024 of the arena; keep some room for
// the entry header and key.
const chunkOverhead = 256

// pageCache stores page bodies in freecache split across fixed-size chunks.
// A body is only returned when every chunk is still present.
type pageCache struct {
	cache     *freecache.Cache
	ttl       int
	chunkSize int
}

func newPageCache(sizeBytes int, ttlSeconds int) *pageCache {
	c := freecache.NewCache(sizeBytes)
	chunk := sizeBytes/1024 - chunkOverhead
	if chunk < 1024 {
		chunk = 1024
	}
	return &pageCache{cache: c, ttl: ttlSeconds, chunkSize: chunk}
}

func (p *pageCache) get(url string) (string, bool) {
	head, err := p.cache.Get(headKey(url))
	if err != nil || len(head) != 8 {
		return "", false
	}
	n := int(binary.BigEndian.Uint32(head[:4]))
	size := int(binary.BigEndian.Uint32(head[4:]))

	buf := make([]byte, 0, size)
	for i := range n {
		part, err := p.cache.Get(chunkKey(url, i))
		if err != nil {
			return "", false
		}
		buf = append(buf, part...)
	}
	if len(buf) != size {
		return "", false
	}
	return string(buf), true
}

func (p *pageCache) set(url, body string) error {
	data := []byte(body)
	n := 0
	for off := 0; off < len(data); off += p.chunkSize {
		end := min(off+p.chunkSize, len(data))
		if err := p.cache.Set(chunkKey(url, n), data[off:end], p.ttl); err != nil {
			return fmt.Errorf("cache chunk %d: %w", n, err)
		}
		n++
	}

	head := make([]byte, 8)
	binary.BigEndian.PutUint32(head[:4], uint32(n))
	binary.BigEndian.PutUint32(head[4:], uint32(len(data)))
	if err := p.cache.Set(headKey(url), head, p.ttl); err != nil {
		return fmt.Errorf("cache head: %w", err)
	}
	return nil
}

func (p *pageCache) del(url string) {
	p.cache.Del(headKey(url))
}

func headKey(url string) []byte {
	return []byte("page:" + url)
}

func chunkKey(url string, i int) []byte {
	return []byte("page:" + url + "#" + strconv.Itoa(i))
}
