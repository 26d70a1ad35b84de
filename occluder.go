package lumen

import (
	"github.com/chewxy/math32"
)

// OcclusionAlphaThreshold is the sprite alpha above which a texel counts
// as covered. Partial transparency below it must not falsely occlude.
const OcclusionAlphaThreshold = 0.1

// OccluderBuffer encodes, per output texel, whether that world position is
// covered by an opaque shadow-casting surface. It is built once per frame
// and shared read-only by every light in every pass.
type OccluderBuffer struct {
	Width  int
	Height int
	bits   []uint8 // one byte per texel, 1 = occluded
}

func NewOccluderBuffer(width, height int) *OccluderBuffer {
	return &OccluderBuffer{
		Width:  width,
		Height: height,
		bits:   make([]uint8, width*height),
	}
}

func (b *OccluderBuffer) Reset() {
	clear(b.bits)
}

// Occluded samples the buffer at a world position. Outside the buffer is
// always unoccluded.
func (b *OccluderBuffer) Occluded(x, y float32) bool {
	ix := int(math32.Floor(x))
	iy := int(math32.Floor(y))
	if ix < 0 || iy < 0 || ix >= b.Width || iy >= b.Height {
		return false
	}
	return b.bits[iy*b.Width+ix] != 0
}

func (b *OccluderBuffer) set(x, y int) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.bits[y*b.Width+x] = 1
}

// Texels exposes the raw occupancy bytes for GPU upload.
func (b *OccluderBuffer) Texels() []uint8 { return b.bits }

// RasterizeOccluders draws the silhouettes of the given shadow casters
// into buf in the order given (zIndex order from the snapshot). A caster
// contributes only where its own sprite alpha exceeds the threshold; a
// caster without a resolvable image is treated as fully opaque.
func RasterizeOccluders(buf *OccluderBuffer, casters []Caster, assets *AssetServer) {
	for i := range casters {
		rasterizeCaster(buf, &casters[i], assets)
	}
}

func rasterizeCaster(buf *OccluderBuffer, c *Caster, assets *AssetServer) {
	half := c.footprint(assets)
	if half.X() <= 0 || half.Y() <= 0 {
		return
	}
	img := assets.lookup(c.Image)

	// Conservative bounding box of the rotated rectangle.
	r := math32.Hypot(half.X(), half.Y())
	minX := int(math32.Floor(c.Position.X() - r))
	maxX := int(math32.Ceil(c.Position.X() + r))
	minY := int(math32.Floor(c.Position.Y() - r))
	maxY := int(math32.Ceil(c.Position.Y() + r))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > buf.Width {
		maxX = buf.Width
	}
	if maxY > buf.Height {
		maxY = buf.Height
	}

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			local := c.worldToLocal(texelCenter(x, y))
			if math32.Abs(local.X()) > half.X() || math32.Abs(local.Y()) > half.Y() {
				continue
			}
			if img != nil {
				u := local.X()/(2*half.X()) + 0.5
				v := local.Y()/(2*half.Y()) + 0.5
				tx := int(u * float32(img.Width))
				ty := int(v * float32(img.Height))
				if img.Alpha(tx, ty) <= OcclusionAlphaThreshold {
					continue
				}
			}
			buf.set(x, y)
		}
	}
}
