package lumen

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"
)

// The GPU backend samples CPU-baked frame textures: the flattened
// albedo/normal surfaces, the occlusion buffer, and the per-pass mask
// layers. Everything here is plain bytes so the gpu package stays a thin
// upload/dispatch layer.

const (
	// MaskSlotCount is the number of per-pass mask layers: one per point
	// and spot light slot (4+4). Directional lights carry no mask.
	MaskSlotCount = 8

	// MaskLayerSize is the fixed resolution masks are resampled to for
	// the GPU texture array. The CPU reference path samples originals.
	MaskLayerSize = 256
)

// GPUPassInputs holds one pass's resampled mask layers. Extent is the
// mask's world footprint (scale times original pixel size); a nil layer
// means the slot's light has no mask.
type GPUPassInputs struct {
	MaskLayers [MaskSlotCount][]uint8
	MaskExtent [MaskSlotCount]mgl32.Vec2
	HasMask    [MaskSlotCount]bool
}

// GPUCasterRect is a direct-mode shadow caster reduced to the rotated
// rectangle the shader tests against.
type GPUCasterRect struct {
	Center      mgl32.Vec2
	Half        mgl32.Vec2
	RotationRad float32
}

// GPUFrameInputs is everything the GPU backend needs for one frame.
type GPUFrameInputs struct {
	Width  int
	Height int

	Albedo   []uint8 // RGBA, surface colors under each pixel
	Normal   []uint8 // RGBA, encoded normals; alpha = receivesShadows
	Occluder []uint8 // one byte per texel, nil in direct shadow mode

	DirectCasters []GPUCasterRect

	Passes []GPUPassInputs
}

// PrepareGPUFrame bakes the frame inputs for a plan at the pipeline's
// current resolution.
func (p *Pipeline) PrepareGPUFrame(plan *FramePlan) *GPUFrameInputs {
	frame := &GPUFrameInputs{
		Width:  p.width,
		Height: p.height,
		Albedo: make([]uint8, p.width*p.height*4),
		Normal: make([]uint8, p.width*p.height*4),
	}

	surfaces := p.surfaceIndex(plan.Casters)
	p.forEachRow(func(y int) {
		for x := 0; x < p.width; x++ {
			px := surfaces.at(texelCenter(x, y))
			i := (y*p.width + x) * 4
			frame.Albedo[i+0] = toByte(px.Albedo.X())
			frame.Albedo[i+1] = toByte(px.Albedo.Y())
			frame.Albedo[i+2] = toByte(px.Albedo.Z())
			frame.Albedo[i+3] = toByte(px.Albedo.W())

			n := px.Normal
			if n.Len() < 1e-6 {
				n = mgl32.Vec3{0, 0, 1}
			}
			frame.Normal[i+0] = toByte(n.X()*0.5 + 0.5)
			frame.Normal[i+1] = toByte(n.Y()*0.5 + 0.5)
			frame.Normal[i+2] = toByte(n.Z()*0.5 + 0.5)
			if px.ReceivesShadows {
				frame.Normal[i+3] = 255
			}
		}
	})

	if plan.ShadowMode == ShadowModeOccluder {
		p.occluder.Reset()
		RasterizeOccluders(p.occluder, plan.ShadowCasters, p.assets)
		frame.Occluder = append([]uint8(nil), p.occluder.Texels()...)
	} else {
		for _, c := range plan.ShadowCasters {
			frame.DirectCasters = append(frame.DirectCasters, GPUCasterRect{
				Center:      c.Position,
				Half:        c.footprint(p.assets),
				RotationRad: mgl32.DegToRad(c.Rotation),
			})
		}
	}

	frame.Passes = make([]GPUPassInputs, len(plan.Passes))
	for i := range plan.Passes {
		p.bakePassMasks(&plan.Passes[i], &frame.Passes[i])
	}
	return frame
}

func (p *Pipeline) bakePassMasks(pass *Pass, out *GPUPassInputs) {
	for i, l := range pass.Point {
		p.bakeMaskSlot(out, i, l.Mask)
	}
	for i, l := range pass.Spot {
		p.bakeMaskSlot(out, 4+i, l.Mask)
	}
}

func (p *Pipeline) bakeMaskSlot(out *GPUPassInputs, slot int, m *Mask) {
	img := p.assets.resolveMask(m)
	if img == nil {
		return
	}
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	src := &image.NRGBA{
		Pix:    img.Pix,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	dst := image.NewNRGBA(image.Rect(0, 0, MaskLayerSize, MaskLayerSize))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	out.MaskLayers[slot] = dst.Pix
	out.MaskExtent[slot] = mgl32.Vec2{
		scale * float32(img.Width),
		scale * float32(img.Height),
	}
	out.HasMask[slot] = true
}
