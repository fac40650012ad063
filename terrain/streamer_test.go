package terrain

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/humboldt-xie/tinyterrain/mesh"
	"github.com/humboldt-xie/tinyterrain/pool"
	"github.com/pkg/errors"
)

type fakeUploader struct {
	next     uint32
	uploads  []Coord
	released []Handle
	fail     bool
}

func (u *fakeUploader) Upload(id Coord, vertices []float32, indices []uint32) (Handle, error) {
	if u.fail {
		return Handle{}, errors.New("device lost")
	}
	u.next++
	u.uploads = append(u.uploads, id)
	return Handle{VAO: u.next, VBO: u.next, EBO: u.next}, nil
}

func (u *fakeUploader) Release(h Handle) {
	u.released = append(u.released, h)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Resolution = 11
	cfg.HorizontalScale = 1
	cfg.ViewDistance = 25
	cfg.Octaves = 3
	cfg.FrequencyDivisor = 20
	cfg.Workers = 3
	return cfg
}

func newTestStreamer(t *testing.T, cfg Config, opts ...Option) (*Streamer, *fakeUploader) {
	t.Helper()
	up := &fakeUploader{}
	s, err := NewStreamer(cfg, up, opts...)
	if err != nil {
		t.Fatalf("NewStreamer: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s, up
}

func TestCoordOf(t *testing.T) {
	tests := []struct {
		pos  mgl32.Vec3
		want Coord
	}{
		{mgl32.Vec3{0, 0, 0}, Coord{0, 0}},
		{mgl32.Vec3{9.99, 100, 0.01}, Coord{0, 0}},
		{mgl32.Vec3{-0.1, 0, 9.99}, Coord{-1, 0}},
		{mgl32.Vec3{10, 0, -10}, Coord{1, -1}},
		{mgl32.Vec3{-25, 0, 31}, Coord{-3, 3}},
	}
	for _, tt := range tests {
		if got := CoordOf(tt.pos, 10); got != tt.want {
			t.Errorf("CoordOf(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestCoordLess(t *testing.T) {
	if !(Coord{-1, 5}).Less(Coord{0, -5}) {
		t.Errorf("x must order first")
	}
	if !(Coord{2, -1}).Less(Coord{2, 0}) {
		t.Errorf("z must order second")
	}
	if (Coord{2, 2}).Less(Coord{2, 2}) {
		t.Errorf("equal coordinates are not less")
	}
}

func TestOnFrameTickWindow(t *testing.T) {
	s, _ := newTestStreamer(t, testConfig())
	if n := s.OnFrameTick(mgl32.Vec3{0, 0, 0}); n != 49 {
		t.Fatalf("scheduled %d chunks, want 49", n)
	}
	chunks := s.ActiveChunks()
	if len(chunks) != 49 {
		t.Fatalf("%d active chunks, want 49", len(chunks))
	}
	i := 0
	for x := -3; x <= 3; x++ {
		for z := -3; z <= 3; z++ {
			if chunks[i].Coord != (Coord{x, z}) {
				t.Fatalf("chunk %d is %v, want %v", i, chunks[i].Coord, Coord{x, z})
			}
			i++
		}
	}
	if n := s.OnFrameTick(mgl32.Vec3{0, 0, 0}); n != 0 {
		t.Fatalf("second tick scheduled %d chunks, want 0", n)
	}
	if n := s.OnFrameTick(mgl32.Vec3{5, 3, 9}); n != 0 {
		t.Fatalf("tick inside the same chunk scheduled %d chunks", n)
	}
}

func TestPlaceholdersBeforeDrain(t *testing.T) {
	s, up := newTestStreamer(t, testConfig())
	s.OnFrameTick(mgl32.Vec3{0, 0, 0})
	s.Wait()
	for _, c := range s.ActiveChunks() {
		if c.Ready() || c.Handle.Valid() {
			t.Fatalf("chunk %v ready before completions were drained", c.Coord)
		}
	}
	if len(up.uploads) != 0 {
		t.Fatalf("uploaded %d chunks off the owning goroutine", len(up.uploads))
	}
	if st := s.Stat(); st.Completions != 49 || st.Placeholders != 49 {
		t.Fatalf("stat = %+v", st)
	}
}

func TestEndToEnd(t *testing.T) {
	cfg := testConfig()
	s, up := newTestStreamer(t, cfg)

	if n := s.OnFrameTick(mgl32.Vec3{0, 0, 0}); n != 49 {
		t.Fatalf("scheduled %d chunks, want 49", n)
	}
	s.Wait()
	if n := s.DrainCompletions(); n != 49 {
		t.Fatalf("drained %d completions, want 49", n)
	}
	if len(up.uploads) != 49 {
		t.Fatalf("%d uploads, want 49", len(up.uploads))
	}
	seen := map[Coord]bool{}
	for _, id := range up.uploads {
		if seen[id] {
			t.Fatalf("chunk %v uploaded twice", id)
		}
		seen[id] = true
	}

	n := cfg.Resolution
	for _, c := range s.ActiveChunks() {
		if !c.Ready() || !c.Handle.Valid() {
			t.Fatalf("chunk %v not ready", c.Coord)
		}
		if got, want := c.IndexCount(), (n-1)*(n-1)*6; got != want {
			t.Fatalf("chunk %v has %d indices, want %d", c.Coord, got, want)
		}
		if got := len(c.Vertices) / mesh.Stride; got != n*n {
			t.Fatalf("chunk %v has %d vertices", c.Coord, got)
		}
		if c.Origin != c.Coord.Origin(10) {
			t.Fatalf("chunk %v origin %v", c.Coord, c.Origin)
		}
		first := mgl32.Vec3{c.Vertices[0], 0, c.Vertices[2]}
		if first != c.Origin {
			t.Fatalf("chunk %v first vertex at %v, want %v", c.Coord, first, c.Origin)
		}
	}
	if s.DrainCompletions() != 0 {
		t.Fatalf("second drain was not empty")
	}
	if st := s.Stat(); st.Ready != 49 || st.Placeholders != 0 || st.Scheduled != 49 {
		t.Fatalf("stat = %+v", st)
	}
}

func TestNeighbourEdgesMatch(t *testing.T) {
	cfg := testConfig()
	cfg.ViewDistance = 10
	s, _ := newTestStreamer(t, cfg)
	s.OnFrameTick(mgl32.Vec3{0, 0, 0})
	s.Wait()
	s.DrainCompletions()

	a, _ := s.Chunk(Coord{0, 0})
	b, _ := s.Chunk(Coord{1, 0})
	n := cfg.Resolution
	for z := 0; z < n; z++ {
		ia := (z*n + n - 1) * mesh.Stride
		ib := (z * n) * mesh.Stride
		for k := 0; k < 3; k++ {
			if a.Vertices[ia+k] != b.Vertices[ib+k] {
				t.Fatalf("edge row %d differs: %v vs %v", z, a.Vertices[ia:ia+3], b.Vertices[ib:ib+3])
			}
		}
	}
}

func TestChunkParallelism(t *testing.T) {
	cfg := testConfig()
	cfg.ViewDistance = 10
	serial, _ := newTestStreamer(t, cfg)
	cfg.ChunkParallelism = 4
	parallel, _ := newTestStreamer(t, cfg)

	for _, s := range []*Streamer{serial, parallel} {
		s.OnFrameTick(mgl32.Vec3{0, 0, 0})
		s.Wait()
		s.DrainCompletions()
	}
	a, b := serial.ActiveChunks(), parallel.ActiveChunks()
	for i := range a {
		for k := range a[i].Vertices {
			if a[i].Vertices[k] != b[i].Vertices[k] {
				t.Fatalf("chunk %v float %d differs", a[i].Coord, k)
			}
		}
	}
}

func TestUploadFailureLeavesPlaceholder(t *testing.T) {
	cfg := testConfig()
	cfg.ViewDistance = 0
	s, up := newTestStreamer(t, cfg)
	up.fail = true
	if n := s.OnFrameTick(mgl32.Vec3{1, 0, 1}); n != 1 {
		t.Fatalf("scheduled %d, want 1", n)
	}
	s.Wait()
	s.DrainCompletions()
	c, ok := s.Chunk(Coord{0, 0})
	if !ok || c.Ready() {
		t.Fatalf("chunk should stay a placeholder")
	}
	if n := s.OnFrameTick(mgl32.Vec3{1, 0, 1}); n != 0 {
		t.Fatalf("failed chunk rescheduled")
	}
}

func TestEviction(t *testing.T) {
	cfg := testConfig()
	cfg.ViewDistance = 10
	cfg.CacheChunks = 9
	s, up := newTestStreamer(t, cfg)

	s.OnFrameTick(mgl32.Vec3{0, 0, 0})
	s.Wait()
	s.DrainCompletions()
	if len(up.uploads) != 9 {
		t.Fatalf("%d uploads, want 9", len(up.uploads))
	}

	if n := s.OnFrameTick(mgl32.Vec3{500, 0, 500}); n != 9 {
		t.Fatalf("scheduled %d after moving, want 9", n)
	}
	if got := len(s.ActiveChunks()); got != 9 {
		t.Fatalf("%d active chunks, want 9", got)
	}
	if len(up.released) != 9 {
		t.Fatalf("released %d handles, want 9", len(up.released))
	}
	s.Wait()
	s.DrainCompletions()
	for _, c := range s.ActiveChunks() {
		if c.Coord.X < 49 || c.Coord.X > 51 || c.Coord.Z < 49 || c.Coord.Z > 51 {
			t.Fatalf("unexpected chunk %v", c.Coord)
		}
		if !c.Ready() {
			t.Fatalf("chunk %v not ready", c.Coord)
		}
	}
	if st := s.Stat(); st.Evicted != 9 {
		t.Fatalf("stat = %+v", st)
	}
}

func TestStepKeepsWindowChunks(t *testing.T) {
	steps := []struct {
		name string
		to   mgl32.Vec3
		gone int // x or z of the column that leaves the window
		axis string
	}{
		{"minus x", mgl32.Vec3{-10, 0, 0}, 1, "x"},
		{"plus x", mgl32.Vec3{10, 0, 0}, -1, "x"},
		{"minus z", mgl32.Vec3{0, 0, -10}, 1, "z"},
		{"plus z", mgl32.Vec3{0, 0, 10}, -1, "z"},
	}
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.ViewDistance = 10
			cfg.CacheChunks = 9
			s, up := newTestStreamer(t, cfg)

			s.OnFrameTick(mgl32.Vec3{0, 0, 0})
			s.Wait()
			s.DrainCompletions()

			if n := s.OnFrameTick(step.to); n != 3 {
				t.Fatalf("scheduled %d after a one chunk step, want 3", n)
			}
			if len(up.released) != 3 {
				t.Fatalf("released %d handles, want 3", len(up.released))
			}
			s.Wait()
			s.DrainCompletions()
			if len(up.uploads) != 12 {
				t.Fatalf("%d uploads, want 12", len(up.uploads))
			}
			for _, c := range s.ActiveChunks() {
				v := c.Coord.X
				if step.axis == "z" {
					v = c.Coord.Z
				}
				if v == step.gone {
					t.Fatalf("chunk %v outside the window is still active", c.Coord)
				}
				if !c.Ready() {
					t.Fatalf("chunk %v not ready", c.Coord)
				}
			}
		})
	}
}

func TestEvictedInFlightDropped(t *testing.T) {
	cfg := testConfig()
	cfg.ViewDistance = 10
	cfg.CacheChunks = 9
	s, up := newTestStreamer(t, cfg)

	s.OnFrameTick(mgl32.Vec3{0, 0, 0})
	s.OnFrameTick(mgl32.Vec3{500, 0, 500})
	s.Wait()
	s.DrainCompletions()
	if len(up.uploads) != 9 {
		t.Fatalf("%d uploads, want 9", len(up.uploads))
	}
	for _, id := range up.uploads {
		if id.X < 49 || id.Z < 49 {
			t.Fatalf("evicted chunk %v was uploaded", id)
		}
	}
	if len(up.released) != 0 {
		t.Fatalf("released %d handles that were never uploaded", len(up.released))
	}
}

func TestCloseReleases(t *testing.T) {
	cfg := testConfig()
	cfg.ViewDistance = 10
	up := &fakeUploader{}
	s, err := NewStreamer(cfg, up)
	if err != nil {
		t.Fatal(err)
	}
	s.OnFrameTick(mgl32.Vec3{0, 0, 0})
	s.Wait()
	s.DrainCompletions()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if len(up.released) != 9 {
		t.Fatalf("released %d handles, want 9", len(up.released))
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSharedPool(t *testing.T) {
	workers := pool.New(1)
	defer workers.Close()
	cfg := testConfig()
	cfg.ChunkParallelism = 3
	s, up := newTestStreamer(t, cfg, WithPool(workers))
	s.OnFrameTick(mgl32.Vec3{0, 0, 0})
	s.Wait()
	s.DrainCompletions()
	if len(up.uploads) != 49 {
		t.Fatalf("%d uploads, want 49", len(up.uploads))
	}
}

type memStore struct {
	mu     sync.Mutex
	meshes map[Coord]*mesh.Mesh
	gets   int
	hits   int
	puts   int
}

func (m *memStore) Get(id Coord) (*mesh.Mesh, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.meshes[id]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *memStore) Put(id Coord, v *mesh.Mesh) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.meshes[id] = v
	return nil
}

func (m *memStore) Close() error { return nil }

func TestStreamerUsesStore(t *testing.T) {
	cfg := testConfig()
	cfg.ViewDistance = 10
	store := &memStore{meshes: map[Coord]*mesh.Mesh{}}

	first, _ := newTestStreamer(t, cfg, WithStore(store))
	first.OnFrameTick(mgl32.Vec3{0, 0, 0})
	first.Wait()
	first.DrainCompletions()
	if store.puts != 9 || store.hits != 0 {
		t.Fatalf("first run: puts=%d hits=%d", store.puts, store.hits)
	}

	second, _ := newTestStreamer(t, cfg, WithStore(store))
	second.OnFrameTick(mgl32.Vec3{0, 0, 0})
	second.Wait()
	second.DrainCompletions()
	if store.puts != 9 || store.hits != 9 {
		t.Fatalf("second run: puts=%d hits=%d", store.puts, store.hits)
	}
	a, b := first.ActiveChunks(), second.ActiveChunks()
	for i := range a {
		if len(a[i].Vertices) != len(b[i].Vertices) || !b[i].Ready() {
			t.Fatalf("cached chunk %v differs", b[i].Coord)
		}
	}
}

func TestNewStreamerErrors(t *testing.T) {
	if _, err := NewStreamer(testConfig(), nil); err == nil {
		t.Fatalf("expected error for nil uploader")
	}
	cfg := testConfig()
	cfg.Resolution = 1
	if _, err := NewStreamer(cfg, &fakeUploader{}); errors.Cause(err) != ErrInvalidConfig {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}
