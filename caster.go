package lumen

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Caster is a sprite surface participating in the lighting pass. It may
// block light (CastsShadows), be darkened by other blockers
// (ReceivesShadows), or both. A surface with ReceivesShadows=false is
// excluded from the shadow test but still shaded by direct light.
type Caster struct {
	ID              string
	Image           string     // diffuse asset name
	Normal          string     // optional normal map asset name
	Position        mgl32.Vec2
	Size            mgl32.Vec2 // footprint in pixels before Scale; zero falls back to the image size
	Rotation        float32    // degrees
	Scale           float32    // <= 0 treated as 1
	ZIndex          int
	CastsShadows    bool
	ReceivesShadows bool
	UseNormalMap    bool
	Visible         bool
}

// footprint returns the world-space half extents of the caster rectangle,
// resolving Size against the diffuse image when unset.
func (c *Caster) footprint(assets *AssetServer) mgl32.Vec2 {
	size := c.Size
	if size.X() <= 0 || size.Y() <= 0 {
		if img := assets.lookup(c.Image); img != nil {
			size = mgl32.Vec2{float32(img.Width), float32(img.Height)}
		}
	}
	scale := c.Scale
	if scale <= 0 {
		scale = 1
	}
	return size.Mul(scale * 0.5)
}

// worldToLocal maps a world point into the caster's unrotated local frame,
// origin at the sprite center.
func (c *Caster) worldToLocal(p mgl32.Vec2) mgl32.Vec2 {
	d := p.Sub(c.Position)
	if c.Rotation == 0 {
		return d
	}
	return rotateVec2(d, -c.Rotation)
}
