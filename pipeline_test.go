package lumen

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRenderFrameAmbientOnly(t *testing.T) {
	p := NewPipeline(4, 4, NewAssetServer())
	ambient := Ambient{Color: mgl32.Vec3{1, 1, 1}, Intensity: 0.5}

	img := p.RenderFrame(nil, ambient, nil, DefaultShadowConfig())

	// No lights, white background: every pixel is the ambient term.
	want := toByte(0.5)
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != want || img.Pix[i+1] != want || img.Pix[i+2] != want {
			t.Fatalf("pixel %d: expected uniform ambient %d, got %v", i/4, want, img.Pix[i:i+4])
		}
		if img.Pix[i+3] != 255 {
			t.Fatalf("pixel %d: background alpha must be opaque", i/4)
		}
	}
}

func TestRenderFrameIdempotent(t *testing.T) {
	assets := NewAssetServer()
	p := NewPipeline(32, 32, assets)

	l := makePoint("p")
	l.Position = mgl32.Vec3{16, 16, 10}
	l.Radius = 40
	l.CastsShadows = true
	d := makeDirectional("d")
	d.Direction = mgl32.Vec3{0.5, 0.3, -1}

	casters := []Caster{
		{ID: "a", Position: mgl32.Vec2{10, 10}, Size: mgl32.Vec2{6, 6}, CastsShadows: true, ReceivesShadows: true, Visible: true},
		{ID: "b", Position: mgl32.Vec2{22, 22}, Size: mgl32.Vec2{8, 4}, Rotation: 45, ReceivesShadows: true, Visible: true},
	}
	ambient := Ambient{Color: mgl32.Vec3{0.2, 0.2, 0.3}, Intensity: 1}

	first := p.RenderFrame([]Light{l, d}, ambient, casters, DefaultShadowConfig())
	second := p.RenderFrame([]Light{l, d}, ambient, casters, DefaultShadowConfig())

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("rendering the same snapshot twice must be bit-identical")
	}
}

func TestRenderFrameSurfaceLayering(t *testing.T) {
	assets := NewAssetServer()
	p := NewPipeline(8, 8, assets)
	p.Background = mgl32.Vec4{0, 0, 0, 1}
	ambient := Ambient{Color: mgl32.Vec3{1, 1, 1}, Intensity: 1}

	// Imageless caster over a black background: covered pixels shade the
	// white surface, uncovered ones keep the background.
	casters := []Caster{
		{ID: "under", Position: mgl32.Vec2{4, 4}, Size: mgl32.Vec2{4, 4}, ZIndex: 0, ReceivesShadows: true, Visible: true},
	}
	img := p.RenderFrame(nil, ambient, casters, DefaultShadowConfig())

	center := img.PixOffset(4, 4)
	if img.Pix[center] != 255 {
		t.Errorf("covered pixel must show the surface, got %d", img.Pix[center])
	}
	corner := img.PixOffset(0, 0)
	if img.Pix[corner] != 0 {
		t.Errorf("uncovered pixel must show the background, got %d", img.Pix[corner])
	}
}

func TestRenderFrameInvisibleCasterSkipped(t *testing.T) {
	p := NewPipeline(8, 8, NewAssetServer())
	p.Background = mgl32.Vec4{0, 0, 0, 1}
	ambient := Ambient{Color: mgl32.Vec3{1, 1, 1}, Intensity: 1}

	casters := []Caster{
		{ID: "ghost", Position: mgl32.Vec2{4, 4}, Size: mgl32.Vec2{8, 8}, Visible: false},
	}
	img := p.RenderFrame(nil, ambient, casters, DefaultShadowConfig())
	if img.Pix[img.PixOffset(4, 4)] != 0 {
		t.Error("invisible caster must not shade")
	}
}

func TestPipelineResize(t *testing.T) {
	p := NewPipeline(8, 8, NewAssetServer())
	p.Resize(16, 4)
	w, h := p.Size()
	if w != 16 || h != 4 {
		t.Fatalf("expected 16x4 after resize, got %dx%d", w, h)
	}
	img := p.RenderFrame(nil, Ambient{}, nil, DefaultShadowConfig())
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 4 {
		t.Errorf("rendered image must match the new size, got %v", img.Bounds())
	}
}

func TestPlanStampsPipelineTint(t *testing.T) {
	p := NewPipeline(4, 4, NewAssetServer())
	p.Tint = mgl32.Vec3{0.5, 1, 1}
	plan := p.Plan(nil, Ambient{}, nil, DefaultShadowConfig())
	if plan.Tint != (mgl32.Vec3{0.5, 1, 1}) {
		t.Errorf("expected pipeline tint on the plan, got %v", plan.Tint)
	}
}

func TestPrepareGPUFrame(t *testing.T) {
	assets := NewAssetServer()
	assets.RegisterImage("mask.png", maskImage3x3(128))
	p := NewPipeline(16, 16, assets)

	l := makePoint("p")
	l.Position = mgl32.Vec3{8, 8, 10}
	l.Mask = &Mask{Image: "mask.png", Scale: 2}

	var casters []Caster
	for i := 0; i < 5; i++ {
		casters = append(casters, Caster{
			ID: string(rune('a' + i)), Position: mgl32.Vec2{float32(2 + i*3), 8},
			Size: mgl32.Vec2{2, 2}, CastsShadows: true, ReceivesShadows: true, Visible: true,
		})
	}

	plan := p.Plan([]Light{l}, Ambient{}, casters, DefaultShadowConfig())
	if plan.ShadowMode != ShadowModeOccluder {
		t.Fatalf("expected occluder mode with 5 casters, got %s", plan.ShadowMode)
	}
	frame := p.PrepareGPUFrame(plan)

	if frame.Width != 16 || frame.Height != 16 {
		t.Fatalf("frame size mismatch: %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Albedo) != 16*16*4 || len(frame.Normal) != 16*16*4 {
		t.Fatalf("baked texture sizes wrong: %d, %d", len(frame.Albedo), len(frame.Normal))
	}
	if len(frame.Occluder) != 16*16 {
		t.Fatalf("occluder texture must be baked in occluder mode, got %d bytes", len(frame.Occluder))
	}
	if frame.Occluder[8*16+8] == 0 {
		t.Error("texel under a shadow caster must be occluded")
	}

	if len(frame.Passes) != 1 {
		t.Fatalf("expected 1 baked pass, got %d", len(frame.Passes))
	}
	masks := frame.Passes[0]
	if !masks.HasMask[0] {
		t.Fatal("slot 0 must carry the point light's mask")
	}
	if len(masks.MaskLayers[0]) != MaskLayerSize*MaskLayerSize*4 {
		t.Errorf("mask layer must be resampled to %dx%d", MaskLayerSize, MaskLayerSize)
	}
	if masks.MaskExtent[0] != (mgl32.Vec2{6, 6}) {
		t.Errorf("mask extent must be scale*pixel size, got %v", masks.MaskExtent[0])
	}

	// Direct mode bakes caster rects instead of the occluder texture.
	plan = p.Plan([]Light{l}, Ambient{}, casters[:2], DefaultShadowConfig())
	frame = p.PrepareGPUFrame(plan)
	if frame.Occluder != nil {
		t.Error("direct mode must not bake the occluder texture")
	}
	if len(frame.DirectCasters) != 2 {
		t.Fatalf("expected 2 direct caster rects, got %d", len(frame.DirectCasters))
	}
	if frame.DirectCasters[0].Half != (mgl32.Vec2{1, 1}) {
		t.Errorf("caster half extents wrong: %v", frame.DirectCasters[0].Half)
	}
}
