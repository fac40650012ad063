package terrain

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.ChunkExtent() != 64 {
		t.Errorf("ChunkExtent() = %v, want 64", cfg.ChunkExtent())
	}
	if cfg.Radius() != 4 {
		t.Errorf("Radius() = %d, want 4", cfg.Radius())
	}
	if cfg.cacheSize() != 9*9*4 {
		t.Errorf("cacheSize() = %d, want %d", cfg.cacheSize(), 9*9*4)
	}
}

func TestRadiusRounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolution = 11
	cfg.HorizontalScale = 1
	for _, tt := range []struct {
		dist float64
		want int
	}{{0, 0}, {4, 0}, {5, 1}, {14.9, 1}, {25, 3}, {34, 3}, {35, 4}} {
		cfg.ViewDistance = tt.dist
		if got := cfg.Radius(); got != tt.want {
			t.Errorf("Radius() with view distance %v = %d, want %d", tt.dist, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"resolution", func(c *Config) { c.Resolution = 1 }},
		{"horizontal scale", func(c *Config) { c.HorizontalScale = 0 }},
		{"octaves", func(c *Config) { c.Octaves = 0 }},
		{"divisor", func(c *Config) { c.FrequencyDivisor = -1 }},
		{"view distance", func(c *Config) { c.ViewDistance = -5 }},
		{"workers", func(c *Config) { c.Workers = -1 }},
		{"noise", func(c *Config) { c.Noise = "worley" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); errors.Cause(err) != ErrInvalidConfig {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	data := []byte("resolution: 33\nhorizontal_scale: 2\nnoise: simplex\nview_distance: 128\nworkers: 2\n")
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Resolution != 33 || cfg.HorizontalScale != 2 || cfg.Noise != "simplex" || cfg.Workers != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	// untouched fields keep their defaults
	if cfg.Octaves != DefaultConfig().Octaves {
		t.Errorf("Octaves = %d, want default", cfg.Octaves)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	os.Setenv("TERRAIN_VIEW_DISTANCE", "300")
	os.Setenv("TERRAIN_WORKERS", "nope")
	defer func() {
		os.Unsetenv("TERRAIN_VIEW_DISTANCE")
		os.Unsetenv("TERRAIN_WORKERS")
	}()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ViewDistance != 300 {
		t.Errorf("ViewDistance = %v, want 300", cfg.ViewDistance)
	}
	if cfg.Workers != 0 {
		t.Errorf("invalid TERRAIN_WORKERS should keep the default, got %d", cfg.Workers)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	ioutil.WriteFile(path, []byte("resolution: 1\n"), 0644)
	if _, err := LoadConfig(path); errors.Cause(err) != ErrInvalidConfig {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestHeightAtMatchesMesh(t *testing.T) {
	cfg := testConfig()
	s, _ := newTestStreamer(t, cfg)
	s.OnFrameTick(mgl32.Vec3{0, 0, 0})
	s.Wait()
	s.DrainCompletions()
	c, ok := s.Chunk(Coord{0, 0})
	if !ok || !c.Ready() {
		t.Fatalf("chunk 0,0 not ready")
	}
	// vertex (3, 4) of chunk 0,0
	i := 4*cfg.Resolution + 3
	want := c.Vertices[i*8+1]
	got, err := cfg.HeightAt(3*cfg.HorizontalScale, 4*cfg.HorizontalScale)
	if err != nil {
		t.Fatalf("HeightAt: %v", err)
	}
	if math.Abs(got-float64(want)) > 1e-4 {
		t.Fatalf("HeightAt = %v, mesh has %v", got, want)
	}
}
