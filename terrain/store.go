package terrain

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/boltdb/bolt"
	"github.com/cespare/xxhash/v2"
	"github.com/humboldt-xie/tinyterrain/mesh"
	"github.com/pkg/errors"
)

var meshBucket = []byte("mesh")

var errBadRecord = errors.New("terrain: corrupt mesh record")

// MeshStore caches generated meshes. Implementations must be safe for use
// from worker goroutines.
type MeshStore interface {
	Get(id Coord) (*mesh.Mesh, bool, error)
	Put(id Coord, m *mesh.Mesh) error
	Close() error
}

// BoltStore keeps meshes in a bolt file. Keys are prefixed with a fingerprint
// of the generation parameters, so records from another config never match.
type BoltStore struct {
	db          *bolt.DB
	fingerprint uint64
}

func NewBoltStore(path string, cfg Config) (*BoltStore, error) {
	db, err := bolt.Open(path, 0666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open mesh store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(meshBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create mesh bucket")
	}
	db.NoSync = true
	return &BoltStore{db: db, fingerprint: Fingerprint(cfg)}, nil
}

func (s *BoltStore) Get(id Coord) (*mesh.Mesh, bool, error) {
	var m *mesh.Mesh
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(meshBucket).Get(s.key(id))
		if v == nil {
			return nil
		}
		var err error
		m, err = decodeMesh(v)
		return err
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "get mesh %v", id)
	}
	return m, m != nil, nil
}

func (s *BoltStore) Put(id Coord, m *mesh.Mesh) error {
	value := encodeMesh(m)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(meshBucket).Put(s.key(id), value)
	})
	return errors.Wrapf(err, "put mesh %v", id)
}

// Close flushes the file, which is written with NoSync, and closes it.
func (s *BoltStore) Close() error {
	serr := s.db.Sync()
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close mesh store")
	}
	return errors.Wrap(serr, "sync mesh store")
}

func (s *BoltStore) key(id Coord) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf, s.fingerprint)
	binary.BigEndian.PutUint32(buf[8:], uint32(int32(id.X)))
	binary.BigEndian.PutUint32(buf[12:], uint32(int32(id.Z)))
	return buf
}

// Fingerprint hashes every Config field that changes generated geometry.
func Fingerprint(cfg Config) uint64 {
	d := xxhash.New()
	binary.Write(d, binary.LittleEndian, [...]float64{
		float64(cfg.Resolution),
		cfg.HorizontalScale,
		cfg.HeightScale,
		float64(cfg.Seed),
		float64(cfg.Octaves),
		cfg.FrequencyDivisor,
		cfg.OffsetX,
		cfg.OffsetZ,
	})
	d.WriteString(cfg.Noise)
	return d.Sum64()
}

func encodeMesh(m *mesh.Mesh) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(8 + 4*len(m.Vertices) + 4*len(m.Indices))
	binary.Write(buf, binary.LittleEndian, [...]uint32{uint32(len(m.Vertices)), uint32(len(m.Indices))})
	binary.Write(buf, binary.LittleEndian, m.Vertices)
	binary.Write(buf, binary.LittleEndian, m.Indices)
	return buf.Bytes()
}

// decodeMesh copies out of b, which bolt only guarantees during the
// transaction.
func decodeMesh(b []byte) (*mesh.Mesh, error) {
	if len(b) < 8 {
		return nil, errBadRecord
	}
	nv := binary.LittleEndian.Uint32(b)
	ni := binary.LittleEndian.Uint32(b[4:])
	if uint64(len(b)) != 8+4*uint64(nv)+4*uint64(ni) || nv%mesh.Stride != 0 {
		return nil, errBadRecord
	}
	m := &mesh.Mesh{
		Vertices: make([]float32, nv),
		Indices:  make([]uint32, ni),
	}
	p := b[8:]
	for i := range m.Vertices {
		m.Vertices[i] = math.Float32frombits(binary.LittleEndian.Uint32(p))
		p = p[4:]
	}
	for i := range m.Indices {
		m.Indices[i] = binary.LittleEndian.Uint32(p)
		p = p[4:]
	}
	return m, nil
}
