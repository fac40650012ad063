package terrain

import (
	"sort"

	"github.com/hashicorp/golang-lru/simplelru"
)

// ChunkSet maps coordinates to chunks, evicting the least recently touched
// chunk once full. It is not safe for concurrent use; only the owning
// goroutine touches it.
type ChunkSet struct {
	lru *simplelru.LRU
}

func NewChunkSet(size int, onEvict func(c *Chunk)) (*ChunkSet, error) {
	var cb simplelru.EvictCallback
	if onEvict != nil {
		cb = func(_ interface{}, v interface{}) {
			onEvict(v.(*Chunk))
		}
	}
	l, err := simplelru.NewLRU(size, cb)
	if err != nil {
		return nil, err
	}
	return &ChunkSet{lru: l}, nil
}

// Touch reports whether id is present and marks it recently used.
func (s *ChunkSet) Touch(id Coord) bool {
	_, ok := s.lru.Get(id)
	return ok
}

// Peek looks id up without changing its recency.
func (s *ChunkSet) Peek(id Coord) (*Chunk, bool) {
	v, ok := s.lru.Peek(id)
	if !ok {
		return nil, false
	}
	return v.(*Chunk), true
}

func (s *ChunkSet) Add(c *Chunk) {
	s.lru.Add(c.Coord, c)
}

func (s *ChunkSet) Remove(id Coord) {
	s.lru.Remove(id)
}

func (s *ChunkSet) Len() int {
	return s.lru.Len()
}

// Chunks returns every chunk ordered by Coord.Less.
func (s *ChunkSet) Chunks() []*Chunk {
	keys := s.lru.Keys()
	chunks := make([]*Chunk, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.lru.Peek(k); ok {
			chunks = append(chunks, v.(*Chunk))
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Coord.Less(chunks[j].Coord)
	})
	return chunks
}

// Purge removes every chunk, running the eviction callback for each.
func (s *ChunkSet) Purge() {
	s.lru.Purge()
}
