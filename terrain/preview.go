package terrain

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// HeightmapImage renders the heights of the (2*radius+1)² chunks around
// center as a grayscale image, one pixel per vertex, scaled so the lowest
// point is black and the highest white.
func HeightmapImage(cfg Config, center Coord, radius int) (*image.Gray, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, errors.Errorf("terrain: negative preview radius %d", radius)
	}
	src, err := cfg.source()
	if err != nil {
		return nil, err
	}
	extent := cfg.ChunkExtent()
	size := (2*radius+1)*(cfg.Resolution-1) + 1
	origin := Coord{center.X - radius, center.Z - radius}.Origin(extent)

	heights := make([]float64, size*size)
	lo, hi := math.Inf(1), math.Inf(-1)
	for z := 0; z < size; z++ {
		for x := 0; x < size; x++ {
			wx := float64(origin.X()) + float64(x)*cfg.HorizontalScale
			wz := float64(origin.Z()) + float64(z)*cfg.HorizontalScale
			h := src.Sample(wx+cfg.OffsetX, wz+cfg.OffsetZ) * cfg.HeightScale
			heights[z*size+x] = h
			lo = math.Min(lo, h)
			hi = math.Max(hi, h)
		}
	}

	img := image.NewGray(image.Rect(0, 0, size, size))
	span := hi - lo
	for i, h := range heights {
		var v uint8
		if span > 0 {
			v = uint8(math.Round((h - lo) / span * 255))
		}
		img.SetGray(i%size, i/size, color.Gray{Y: v})
	}
	return img, nil
}

// SavePreview writes the heightmap around center to path. The format follows
// the file extension. Images wider than maxSide pixels are downscaled; 0
// keeps the full size.
func SavePreview(path string, cfg Config, center Coord, radius, maxSide int) error {
	img, err := HeightmapImage(cfg, center, radius)
	if err != nil {
		return err
	}
	var out image.Image = img
	if maxSide > 0 && img.Bounds().Dx() > maxSide {
		out = imaging.Resize(img, maxSide, maxSide, imaging.Lanczos)
	}
	return errors.Wrapf(imaging.Save(out, path), "save preview %s", path)
}
