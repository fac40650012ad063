package terrain

import (
	"context"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/humboldt-xie/tinyterrain/completion"
	"github.com/humboldt-xie/tinyterrain/mesh"
	"github.com/humboldt-xie/tinyterrain/noise"
	"github.com/humboldt-xie/tinyterrain/pool"
	"github.com/pkg/errors"
)

// Streamer owns the active chunk set, the worker pool and the completion
// queue. OnFrameTick, DrainCompletions, ActiveChunks and Close must all be
// called from the owning goroutine.
type Streamer struct {
	cfg    Config
	extent float64
	src    noise.Source

	chunks      *ChunkSet
	workers     *pool.Pool
	completions completion.Queue
	uploader    Uploader
	store       MeshStore

	ownPool  bool
	inflight sync.WaitGroup
	stat     Stat
	closed   bool
}

type Stat struct {
	Placeholders int
	Ready        int
	Scheduled    int
	Evicted      int
	// PendingTasks counts tasks queued in the pool, including height batches.
	PendingTasks int
	Completions  int
}

type Option func(*Streamer)

// WithStore caches generated meshes in store. The streamer closes it.
func WithStore(store MeshStore) Option {
	return func(s *Streamer) {
		s.store = store
	}
}

// WithPool runs generation on p instead of a pool owned by the streamer.
func WithPool(p *pool.Pool) Option {
	return func(s *Streamer) {
		s.workers = p
	}
}

func NewStreamer(cfg Config, uploader Uploader, opts ...Option) (*Streamer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if uploader == nil {
		return nil, errors.New("terrain: nil uploader")
	}
	src, err := cfg.source()
	if err != nil {
		return nil, err
	}
	s := &Streamer{
		cfg:      cfg,
		extent:   cfg.ChunkExtent(),
		src:      src,
		uploader: uploader,
	}
	s.chunks, err = NewChunkSet(cfg.cacheSize(), s.evict)
	if err != nil {
		return nil, errors.Wrap(err, "chunk set")
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil && cfg.CachePath != "" {
		s.store, err = NewBoltStore(cfg.CachePath, cfg)
		if err != nil {
			return nil, err
		}
	}
	if s.workers == nil {
		s.workers = pool.New(cfg.Workers)
		s.ownPool = true
	}
	return s, nil
}

func (s *Streamer) Config() Config {
	return s.cfg
}

// OnFrameTick makes sure every chunk within the view distance of pos exists,
// scheduling generation for the missing ones. It returns the number of
// chunks scheduled.
//
// Every present chunk in the window is touched before any placeholder is
// added, so the evictions caused by the new placeholders only hit chunks
// outside the window.
func (s *Streamer) OnFrameTick(pos mgl32.Vec3) int {
	center := CoordOf(pos, s.extent)
	r := s.cfg.Radius()
	var missing []Coord
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			id := Coord{center.X + dx, center.Z + dz}
			if !s.chunks.Touch(id) {
				missing = append(missing, id)
			}
		}
	}
	for _, id := range missing {
		s.schedule(id)
	}
	return len(missing)
}

// schedule inserts the placeholder before the task is submitted, so the
// coordinate is never scheduled twice.
func (s *Streamer) schedule(id Coord) {
	ctx, cancel := context.WithCancel(context.Background())
	task := s.newTask(id)
	placeholder := newPlaceholder(id, task.Origin, cancel)
	s.chunks.Add(placeholder)
	s.stat.Scheduled++

	s.inflight.Add(1)
	s.workers.Submit(func() {
		s.generate(ctx, task, placeholder)
	})
}

// DrainCompletions uploads every finished chunk and returns how many
// completions ran.
func (s *Streamer) DrainCompletions() int {
	return s.completions.Drain()
}

func (s *Streamer) finalize(placeholder *Chunk, m *mesh.Mesh) {
	if s.closed {
		return
	}
	cur, ok := s.chunks.Peek(placeholder.Coord)
	if !ok || cur != placeholder || cur.ready {
		// evicted while generating
		return
	}
	h, err := s.uploader.Upload(cur.Coord, m.Vertices, m.Indices)
	if err != nil {
		log.Printf("upload chunk %v: %v", cur.Coord, err)
		return
	}
	cur.Vertices = m.Vertices
	cur.Indices = m.Indices
	cur.Handle = h
	cur.ready = true
	cur.cancel()
}

func (s *Streamer) evict(c *Chunk) {
	s.stat.Evicted++
	c.cancel()
	if c.ready {
		s.uploader.Release(c.Handle)
		c.Handle = Handle{}
		c.ready = false
	}
}

// ActiveChunks returns a snapshot of the active set ordered by coordinate,
// placeholders included.
func (s *Streamer) ActiveChunks() []*Chunk {
	return s.chunks.Chunks()
}

// Chunk looks up a chunk without touching it.
func (s *Streamer) Chunk(id Coord) (*Chunk, bool) {
	return s.chunks.Peek(id)
}

// Wait blocks until every scheduled task has finished and queued its
// completion.
func (s *Streamer) Wait() {
	s.inflight.Wait()
}

func (s *Streamer) Stat() Stat {
	st := s.stat
	for _, c := range s.chunks.Chunks() {
		if c.ready {
			st.Ready++
		} else {
			st.Placeholders++
		}
	}
	st.PendingTasks = s.workers.Pending()
	st.Completions = s.completions.Len()
	return st
}

// Close cancels outstanding generation, waits for it to stop, releases every
// uploaded chunk and closes the store. A pool passed with WithPool is left
// running.
func (s *Streamer) Close() error {
	if s.closed {
		return nil
	}
	for _, c := range s.chunks.Chunks() {
		c.cancel()
	}
	s.inflight.Wait()
	if s.ownPool {
		s.workers.Close()
	}
	s.closed = true
	s.completions.Drain()
	s.chunks.Purge()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
