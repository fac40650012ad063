package terrain

import (
	"io/ioutil"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/humboldt-xie/tinyterrain/noise"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

var ErrInvalidConfig = errors.New("terrain: invalid config")

type Config struct {
	// Resolution is the number of vertices per chunk side.
	Resolution      int     `yaml:"resolution"`
	HorizontalScale float64 `yaml:"horizontal_scale"`
	HeightScale     float64 `yaml:"height_scale"`

	Noise            string  `yaml:"noise"`
	Seed             int64   `yaml:"seed"`
	Octaves          int     `yaml:"octaves"`
	FrequencyDivisor float64 `yaml:"frequency_divisor"`
	OffsetX          float64 `yaml:"offset_x"`
	OffsetZ          float64 `yaml:"offset_z"`

	ViewDistance float64 `yaml:"view_distance"`
	// Workers is the pool size, 0 picks pool.DefaultSize.
	Workers int `yaml:"workers"`
	// ChunkParallelism is the number of height batches per chunk.
	ChunkParallelism int `yaml:"chunk_parallelism"`
	// CacheChunks caps the active chunk set, 0 derives it from the view
	// distance.
	CacheChunks int `yaml:"cache_chunks"`
	// CachePath enables the on disk mesh cache.
	CachePath string `yaml:"cache_path"`
}

func DefaultConfig() Config {
	return Config{
		Resolution:       65,
		HorizontalScale:  1,
		HeightScale:      24,
		Noise:            noise.KindGradient,
		Seed:             1,
		Octaves:          6,
		FrequencyDivisor: 96,
		ViewDistance:     256,
		ChunkParallelism: 1,
	}
}

// LoadConfig reads a yaml file over DefaultConfig and applies environment
// overrides. An empty path only applies the overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ViewDistance = getFloatEnv("TERRAIN_VIEW_DISTANCE", c.ViewDistance)
	c.Workers = getIntEnv("TERRAIN_WORKERS", c.Workers)
	c.CachePath = getEnv("TERRAIN_CACHE_PATH", c.CachePath)
	c.Noise = getEnv("TERRAIN_NOISE", c.Noise)
	c.Seed = int64(getIntEnv("TERRAIN_SEED", int(c.Seed)))
}

func (c *Config) Validate() error {
	switch {
	case c.Resolution < 2:
		return errors.Wrapf(ErrInvalidConfig, "resolution %d < 2", c.Resolution)
	case c.HorizontalScale <= 0:
		return errors.Wrapf(ErrInvalidConfig, "horizontal_scale %v <= 0", c.HorizontalScale)
	case c.Octaves < 1:
		return errors.Wrapf(ErrInvalidConfig, "octaves %d < 1", c.Octaves)
	case c.FrequencyDivisor <= 0:
		return errors.Wrapf(ErrInvalidConfig, "frequency_divisor %v <= 0", c.FrequencyDivisor)
	case c.ViewDistance < 0:
		return errors.Wrapf(ErrInvalidConfig, "view_distance %v < 0", c.ViewDistance)
	case c.Workers < 0 || c.ChunkParallelism < 0 || c.CacheChunks < 0:
		return errors.Wrap(ErrInvalidConfig, "negative workers, chunk_parallelism or cache_chunks")
	}
	if _, err := noise.NewSource(c.Noise, c.Seed, c.Octaves, c.FrequencyDivisor); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// ChunkExtent is the world size of one chunk side. Neighbouring chunks share
// their edge vertices.
func (c *Config) ChunkExtent() float64 {
	return float64(c.Resolution-1) * c.HorizontalScale
}

// Radius is the view distance in chunks.
func (c *Config) Radius() int {
	return int(math.Round(c.ViewDistance / c.ChunkExtent()))
}

// cacheSize never goes below the window, otherwise chunks in view would
// evict each other every tick.
func (c *Config) cacheSize() int {
	side := 2*c.Radius() + 1
	if c.CacheChunks > 0 {
		if c.CacheChunks < side*side {
			return side * side
		}
		return c.CacheChunks
	}
	return side * side * 4
}

func (c *Config) source() (noise.Source, error) {
	return noise.NewSource(c.Noise, c.Seed, c.Octaves, c.FrequencyDivisor)
}

// HeightAt samples the terrain surface at a world position.
func (c *Config) HeightAt(x, z float64) (float64, error) {
	src, err := c.source()
	if err != nil {
		return 0, err
	}
	return src.Sample(x+c.OffsetX, z+c.OffsetZ) * c.HeightScale, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid integer %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return v
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("invalid number %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return v
}
