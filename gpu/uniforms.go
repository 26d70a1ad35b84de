package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen"
)

// Byte layout of the pass uniform block, mirroring the WGSL struct.
// Each GpuLight is five vec4s, each GpuCaster two. Light slots: 0-3
// point, 4-7 spot, 8-9 directional.
const (
	gpuLightSize  = 80
	gpuCasterSize = 32

	lightsOffset  = 0
	castersOffset = 800
	countsOffset  = 928
	shadowOffset  = 944
	screenOffset  = 960

	// PassUniformsSize is the size of one packed pass uniform block.
	PassUniformsSize = 976

	// CompositeUniformsSize is the size of the composite uniform block.
	CompositeUniformsSize = 32
)

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func putVec4(buf []byte, off int, x, y, z, w float32) {
	putF32(buf, off, x)
	putF32(buf, off+4, y)
	putF32(buf, off+8, z)
	putF32(buf, off+12, w)
}

func boolFlag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func packDirection(d mgl32.Vec3) mgl32.Vec3 {
	if d.Len() < 1e-6 {
		return mgl32.Vec3{0, 1, 0}
	}
	return d
}

type packedLight struct {
	position  mgl32.Vec4
	direction mgl32.Vec4
	color     mgl32.Vec4
	params    mgl32.Vec4
	maskInfo  mgl32.Vec4
}

func writeLight(buf []byte, slot int, l packedLight) {
	off := lightsOffset + slot*gpuLightSize
	putVec4(buf, off, l.position[0], l.position[1], l.position[2], l.position[3])
	putVec4(buf, off+16, l.direction[0], l.direction[1], l.direction[2], l.direction[3])
	putVec4(buf, off+32, l.color[0], l.color[1], l.color[2], l.color[3])
	putVec4(buf, off+48, l.params[0], l.params[1], l.params[2], l.params[3])
	putVec4(buf, off+64, l.maskInfo[0], l.maskInfo[1], l.maskInfo[2], l.maskInfo[3])
}

func maskParams(l *packedLight, m *lumen.Mask, masks *lumen.GPUPassInputs, slot int) {
	if m == nil || !masks.HasMask[slot] {
		return
	}
	l.params[1] = 1
	l.params[2] = mgl32.DegToRad(m.RotationDeg)
	l.maskInfo = mgl32.Vec4{
		m.Offset.X(), m.Offset.Y(),
		masks.MaskExtent[slot].X(), masks.MaskExtent[slot].Y(),
	}
}

// PackPassUniforms packs one pass of the plan into the uniform block
// consumed by the lighting shader.
func PackPassUniforms(plan *lumen.FramePlan, frame *lumen.GPUFrameInputs, passIndex int) []byte {
	buf := make([]byte, PassUniformsSize)
	pass := &plan.Passes[passIndex]
	masks := &frame.Passes[passIndex]

	for i, pl := range pass.Point {
		l := packedLight{
			position: mgl32.Vec4{pl.Position.X(), pl.Position.Y(), pl.Position.Z(), pl.Radius},
			color:    mgl32.Vec4{pl.Color.X(), pl.Color.Y(), pl.Color.Z(), pl.Intensity},
			params:   mgl32.Vec4{0, 0, 0, boolFlag(pl.CastsShadows)},
		}
		maskParams(&l, pl.Mask, masks, i)
		writeLight(buf, i, l)
	}
	for i, sl := range pass.Spot {
		d := packDirection(sl.Direction)
		l := packedLight{
			position:  mgl32.Vec4{sl.Position.X(), sl.Position.Y(), sl.Position.Z(), sl.Radius},
			direction: mgl32.Vec4{d.X(), d.Y(), d.Z(), mgl32.DegToRad(sl.ConeAngle)},
			color:     mgl32.Vec4{sl.Color.X(), sl.Color.Y(), sl.Color.Z(), sl.Intensity},
			params:    mgl32.Vec4{sl.Softness, 0, 0, boolFlag(sl.CastsShadows)},
		}
		maskParams(&l, sl.Mask, masks, 4+i)
		writeLight(buf, 4+i, l)
	}
	for i, dl := range pass.Directional {
		d := packDirection(dl.Direction)
		writeLight(buf, 8+i, packedLight{
			direction: mgl32.Vec4{d.X(), d.Y(), d.Z(), 0},
			color:     mgl32.Vec4{dl.Color.X(), dl.Color.Y(), dl.Color.Z(), dl.Intensity},
			params:    mgl32.Vec4{0, 0, 0, boolFlag(dl.CastsShadows)},
		})
	}

	casterCount := len(frame.DirectCasters)
	if casterCount > lumen.DirectCasterLimit {
		casterCount = lumen.DirectCasterLimit
	}
	for i := 0; i < casterCount; i++ {
		c := frame.DirectCasters[i]
		off := castersOffset + i*gpuCasterSize
		putVec4(buf, off, c.Center.X(), c.Center.Y(), c.Half.X(), c.Half.Y())
		putVec4(buf, off+16, c.RotationRad, 0, 0, 0)
	}

	putU32(buf, countsOffset, uint32(len(pass.Point)))
	putU32(buf, countsOffset+4, uint32(len(pass.Spot)))
	putU32(buf, countsOffset+8, uint32(len(pass.Directional)))
	var mode uint32
	if plan.ShadowMode == lumen.ShadowModeOccluder {
		mode = 1
	}
	putU32(buf, countsOffset+12, mode)

	putVec4(buf, shadowOffset,
		plan.Shadow.Strength,
		plan.Shadow.MaxLength,
		plan.Shadow.Height,
		boolFlag(plan.Shadow.Enabled))

	putVec4(buf, screenOffset,
		float32(frame.Width),
		float32(frame.Height),
		float32(casterCount),
		0)

	return buf
}

// PackCompositeUniforms packs the ambient term and global tint for the
// composite blit.
func PackCompositeUniforms(ambient lumen.Ambient, tint mgl32.Vec3) []byte {
	buf := make([]byte, CompositeUniformsSize)
	putVec4(buf, 0,
		ambient.Color.X()*ambient.Intensity,
		ambient.Color.Y()*ambient.Intensity,
		ambient.Color.Z()*ambient.Intensity,
		0)
	putVec4(buf, 16, tint.X(), tint.Y(), tint.Z(), 0)
	return buf
}
