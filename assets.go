package lumen

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

type AssetId string

// ImageAsset is a decoded sprite or mask image normalized to NRGBA so the
// shading and rasterization paths can index raw texels directly.
type ImageAsset struct {
	Pix    []uint8 // RGBA, 4 bytes per texel, row-major
	Width  int
	Height int
}

// Red samples the red channel at a texel, in [0,1]. Out-of-range
// coordinates clamp to the edge.
func (a *ImageAsset) Red(x, y int) float32 {
	x, y = a.clamp(x, y)
	return float32(a.Pix[(y*a.Width+x)*4]) / 255.0
}

// Alpha samples the alpha channel at a texel, in [0,1].
func (a *ImageAsset) Alpha(x, y int) float32 {
	x, y = a.clamp(x, y)
	return float32(a.Pix[(y*a.Width+x)*4+3]) / 255.0
}

// texel returns one RGBA texel as floats in [0,1].
func (a *ImageAsset) texel(x, y int) (r, g, b, alpha float32) {
	x, y = a.clamp(x, y)
	i := (y*a.Width + x) * 4
	return float32(a.Pix[i]) / 255.0,
		float32(a.Pix[i+1]) / 255.0,
		float32(a.Pix[i+2]) / 255.0,
		float32(a.Pix[i+3]) / 255.0
}

func (a *ImageAsset) clamp(x, y int) (int, int) {
	if x < 0 {
		x = 0
	} else if x >= a.Width {
		x = a.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= a.Height {
		y = a.Height - 1
	}
	return x, y
}

// AssetServer resolves image references (mask filenames, caster sprite
// names) to loaded pixel data. Lights and casters refer to assets by name;
// a reference that resolves to nothing degrades gracefully at the use site.
type AssetServer struct {
	images map[AssetId]*ImageAsset
	byName map[string]AssetId
}

func NewAssetServer() *AssetServer {
	return &AssetServer{
		images: make(map[AssetId]*ImageAsset),
		byName: make(map[string]AssetId),
	}
}

// RegisterImage normalizes an image to NRGBA and stores it under name.
func (s *AssetServer) RegisterImage(name string, img image.Image) AssetId {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)

	id := AssetId(uuid.NewString())
	s.images[id] = &ImageAsset{
		Pix:    dst.Pix,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	s.byName[name] = id
	return id
}

// LoadImage decodes an image file and registers it under name.
func (s *AssetServer) LoadImage(name string, filename string) (AssetId, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("open image %q: %w", filename, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("decode image %q: %w", filename, err)
	}
	return s.RegisterImage(name, img), nil
}

func (s *AssetServer) Get(id AssetId) *ImageAsset {
	return s.images[id]
}

// lookup resolves a name to pixel data, nil when unknown.
func (s *AssetServer) lookup(name string) *ImageAsset {
	if name == "" {
		return nil
	}
	if id, ok := s.byName[name]; ok {
		return s.images[id]
	}
	return nil
}

// resolveMask maps a light's mask reference to its image. A missing
// reference returns nil, which shades as "no mask": the light stays fully
// lit rather than being dropped.
func (s *AssetServer) resolveMask(m *Mask) *ImageAsset {
	if m == nil {
		return nil
	}
	return s.lookup(m.Image)
}
