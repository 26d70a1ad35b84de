package lumen

import (
	"image"
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type pipelineState uint32

const (
	stateIdle pipelineState = iota
	statePlanning
	stateRasterizing
	stateShading
	stateCompositing
)

// Pipeline drives one frame at a time through
// Idle -> Planning -> (Rasterizing)? -> Shading x passCount -> Compositing.
// It owns the per-frame occlusion and accumulation buffers; nothing else
// survives between frames, so identical snapshots shade identically.
type Pipeline struct {
	width  int
	height int
	assets *AssetServer
	log    Logger

	Tint       mgl32.Vec3
	Background mgl32.Vec4 // albedo where no surface covers the pixel

	state    pipelineState
	occluder *OccluderBuffer
	accum    *AccumBuffer
}

func NewPipeline(width, height int, assets *AssetServer) *Pipeline {
	p := &Pipeline{
		assets:     assets,
		log:        NewNopLogger(),
		Tint:       mgl32.Vec3{1, 1, 1},
		Background: mgl32.Vec4{1, 1, 1, 1},
	}
	p.Resize(width, height)
	return p
}

func (p *Pipeline) SetLogger(l Logger) {
	if l != nil {
		p.log = l
	}
}

// Resize invalidates and recreates the per-frame buffers. Must not be
// called while a frame is in flight.
func (p *Pipeline) Resize(width, height int) {
	p.width = width
	p.height = height
	p.occluder = NewOccluderBuffer(width, height)
	p.accum = NewAccumBuffer(width, height)
}

func (p *Pipeline) Size() (int, int) { return p.width, p.height }

// Plan snapshots nothing itself; callers pass registry snapshots. Tint is
// stamped onto the plan here so Shade needs no pipeline access.
func (p *Pipeline) Plan(lights []Light, ambient Ambient, casters []Caster, cfg ShadowConfig) *FramePlan {
	plan := PlanFrame(lights, ambient, casters, cfg)
	plan.Tint = p.Tint
	return plan
}

// RenderFrame executes one complete frame on the CPU and returns the lit
// image. A frame always runs to completion.
func (p *Pipeline) RenderFrame(lights []Light, ambient Ambient, casters []Caster, cfg ShadowConfig) *image.NRGBA {
	p.state = statePlanning
	plan := p.Plan(lights, ambient, casters, cfg)

	var occ *OccluderBuffer
	if plan.ShadowMode == ShadowModeOccluder {
		p.state = stateRasterizing
		p.occluder.Reset()
		RasterizeOccluders(p.occluder, plan.ShadowCasters, p.assets)
		occ = p.occluder
	}
	p.log.Debugf("frame plan: %d passes, shadow mode %s, %d shadow casters",
		len(plan.Passes), plan.ShadowMode, len(plan.ShadowCasters))

	shader := NewShader(plan, p.assets, occ)
	surfaces := p.surfaceIndex(plan.Casters)

	p.state = stateShading
	p.accum.Reset()
	for pass := range plan.Passes {
		p.shadePass(shader, &plan.Passes[pass], surfaces)
	}

	p.state = stateCompositing
	out := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	p.forEachRow(func(y int) {
		for x := 0; x < p.width; x++ {
			px := surfaces.at(texelCenter(x, y))
			c := Composite(plan.Ambient, px.Albedo, p.accum.At(x, y), plan.Tint)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = toByte(c.X())
			out.Pix[i+1] = toByte(c.Y())
			out.Pix[i+2] = toByte(c.Z())
			out.Pix[i+3] = toByte(c.W())
		}
	})

	p.state = stateIdle
	return out
}

// shadePass writes one pass's additive contribution into the accumulation
// buffer. Pixels within a pass are data-parallel; passes stay in order.
func (p *Pipeline) shadePass(shader *Shader, pass *Pass, surfaces *surfaceIndex) {
	p.forEachRow(func(y int) {
		for x := 0; x < p.width; x++ {
			px := surfaces.at(texelCenter(x, y))
			p.accum.Add(x, y, shader.ShadePass(pass, px))
		}
	})
}

func (p *Pipeline) forEachRow(fn func(y int)) {
	var wg sync.WaitGroup
	for y := 0; y < p.height; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			fn(y)
		}(y)
	}
	wg.Wait()
}

// surfaceIndex answers "what surface is under this pixel": topmost visible
// caster texel, or the background. Built once per frame.
type surfaceIndex struct {
	pipeline *Pipeline
	casters  []Caster // zIndex order; scanned back to front
	halves   []mgl32.Vec2
	diffuse  []*ImageAsset
	normals  []*ImageAsset
}

func (p *Pipeline) surfaceIndex(casters []Caster) *surfaceIndex {
	s := &surfaceIndex{
		pipeline: p,
		casters:  casters,
		halves:   make([]mgl32.Vec2, len(casters)),
		diffuse:  make([]*ImageAsset, len(casters)),
		normals:  make([]*ImageAsset, len(casters)),
	}
	for i := range casters {
		s.halves[i] = casters[i].footprint(p.assets)
		s.diffuse[i] = p.assets.lookup(casters[i].Image)
		if casters[i].UseNormalMap {
			s.normals[i] = p.assets.lookup(casters[i].Normal)
		}
	}
	return s
}

func (s *surfaceIndex) at(p mgl32.Vec2) PixelInput {
	for i := len(s.casters) - 1; i >= 0; i-- {
		c := &s.casters[i]
		if !c.Visible {
			continue
		}
		half := s.halves[i]
		if half.X() <= 0 || half.Y() <= 0 {
			continue
		}
		local := c.worldToLocal(p)
		if math32.Abs(local.X()) > half.X() || math32.Abs(local.Y()) > half.Y() {
			continue
		}

		albedo := mgl32.Vec4{1, 1, 1, 1}
		normal := mgl32.Vec3{}
		u := local.X()/(2*half.X()) + 0.5
		v := local.Y()/(2*half.Y()) + 0.5
		if img := s.diffuse[i]; img != nil {
			tx := int(u * float32(img.Width))
			ty := int(v * float32(img.Height))
			r, g, b, a := img.texel(tx, ty)
			if a == 0 {
				continue // fully transparent; surface below shows through
			}
			albedo = mgl32.Vec4{r, g, b, a}
		}
		if img := s.normals[i]; img != nil {
			tx := int(u * float32(img.Width))
			ty := int(v * float32(img.Height))
			r, g, b, _ := img.texel(tx, ty)
			normal = mgl32.Vec3{r*2 - 1, g*2 - 1, b*2 - 1}
		}
		return PixelInput{
			WorldPos:        p,
			Albedo:          albedo,
			Normal:          normal,
			ReceivesShadows: c.ReceivesShadows,
		}
	}
	return PixelInput{
		WorldPos:        p,
		Albedo:          s.pipeline.Background,
		ReceivesShadows: true,
	}
}

func toByte(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
