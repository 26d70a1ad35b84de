package lumen

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Composite folds one pixel's accumulated pass outputs over the ambient
// base: ambient*albedo + sum(passes), then the global tint over the
// composed result (not the ambient term separately). Alpha is the
// surface's own alpha, unaffected by lighting.
func Composite(ambient Ambient, albedo mgl32.Vec4, passSum mgl32.Vec3, tint mgl32.Vec3) mgl32.Vec4 {
	base := ambient.Color.Mul(ambient.Intensity)
	return mgl32.Vec4{
		(base.X()*albedo.X() + passSum.X()) * tint.X(),
		(base.Y()*albedo.Y() + passSum.Y()) * tint.Y(),
		(base.Z()*albedo.Z() + passSum.Z()) * tint.Z(),
		albedo.W(),
	}
}

// AccumBuffer is the per-frame additive accumulation target the passes
// write into. Owned by the pipeline for one frame, reset at the next.
type AccumBuffer struct {
	Width  int
	Height int
	Pix    []mgl32.Vec3
}

func NewAccumBuffer(width, height int) *AccumBuffer {
	return &AccumBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]mgl32.Vec3, width*height),
	}
}

func (b *AccumBuffer) Reset() {
	clear(b.Pix)
}

func (b *AccumBuffer) Add(x, y int, c mgl32.Vec3) {
	i := y*b.Width + x
	b.Pix[i] = b.Pix[i].Add(c)
}

func (b *AccumBuffer) At(x, y int) mgl32.Vec3 {
	return b.Pix[y*b.Width+x]
}
