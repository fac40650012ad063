package terrain

import (
	"context"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/humboldt-xie/tinyterrain/mesh"
)

// GenerationTask describes one chunk to build. It is passed by value to the
// worker that runs it.
type GenerationTask struct {
	Coord           Coord
	Origin          mgl32.Vec3
	Resolution      int
	HeightScale     float64
	HorizontalScale float64
	OffsetX         float64
	OffsetZ         float64
	Parallelism     int
}

func (t GenerationTask) params() mesh.Params {
	return mesh.Params{
		OriginX:         float64(t.Origin.X()),
		OriginZ:         float64(t.Origin.Z()),
		Resolution:      t.Resolution,
		HeightScale:     t.HeightScale,
		HorizontalScale: t.HorizontalScale,
		OffsetX:         t.OffsetX,
		OffsetZ:         t.OffsetZ,
		Parallelism:     t.Parallelism,
	}
}

func (s *Streamer) newTask(id Coord) GenerationTask {
	return GenerationTask{
		Coord:           id,
		Origin:          id.Origin(s.extent),
		Resolution:      s.cfg.Resolution,
		HeightScale:     s.cfg.HeightScale,
		HorizontalScale: s.cfg.HorizontalScale,
		OffsetX:         s.cfg.OffsetX,
		OffsetZ:         s.cfg.OffsetZ,
		Parallelism:     s.cfg.ChunkParallelism,
	}
}

// generate runs on a worker. The finished mesh only leaves through the
// completion queue; placeholder identifies the chunk the result belongs to.
func (s *Streamer) generate(ctx context.Context, t GenerationTask, placeholder *Chunk) {
	defer s.inflight.Done()
	start := time.Now()

	m, cached := s.loadCached(t.Coord)
	if m == nil {
		var err error
		m, err = mesh.Build(ctx, s.workers, s.src, t.params())
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("generate chunk %v: %v", t.Coord, err)
			}
			return
		}
	}
	if !cached && s.store != nil {
		if err := s.store.Put(t.Coord, m); err != nil {
			log.Printf("cache chunk %v: %v", t.Coord, err)
		}
	}
	log.Printf("generate chunk %v spend %fs cached:%v", t.Coord, float64(time.Since(start))/float64(time.Second), cached)

	s.completions.Push(func() {
		s.finalize(placeholder, m)
	})
}

func (s *Streamer) loadCached(id Coord) (*mesh.Mesh, bool) {
	if s.store == nil {
		return nil, false
	}
	m, ok, err := s.store.Get(id)
	if err != nil {
		log.Printf("load cached chunk %v: %v", id, err)
		return nil, false
	}
	return m, ok
}
