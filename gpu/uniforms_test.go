package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen"
)

func f32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func u32At(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off:])
}

func testPlan() (*lumen.FramePlan, *lumen.GPUFrameInputs) {
	point := &lumen.PointLight{
		LightCommon: lumen.LightCommon{ID: "p", Enabled: true, Color: mgl32.Vec3{1, 0.5, 0.25}, Intensity: 2, CastsShadows: true},
		Position:    mgl32.Vec3{100, 200, 10},
		Radius:      300,
		Mask:        &lumen.Mask{Image: "m.png", Offset: mgl32.Vec2{4, -2}, RotationDeg: 90, Scale: 2},
	}
	spot := &lumen.SpotLight{
		LightCommon: lumen.LightCommon{ID: "s", Enabled: true, Color: mgl32.Vec3{1, 1, 1}, Intensity: 1},
		Position:    mgl32.Vec3{50, 60, 20},
		Direction:   mgl32.Vec3{0, 1, 0},
		Radius:      150,
		ConeAngle:   30,
		Softness:    0.5,
	}
	dir := &lumen.DirectionalLight{
		LightCommon: lumen.LightCommon{ID: "d", Enabled: true, Color: mgl32.Vec3{1, 1, 1}, Intensity: 0.5},
		Direction:   mgl32.Vec3{0.2, 0.4, -1},
	}

	casters := []lumen.Caster{{
		ID: "c", Position: mgl32.Vec2{30, 40}, Size: mgl32.Vec2{20, 10},
		Rotation: 45, CastsShadows: true, Visible: true,
	}}

	cfg := lumen.ShadowConfig{Enabled: true, Strength: 0.5, MaxLength: 500, Height: 100}
	plan := lumen.PlanFrame([]lumen.Light{point, spot, dir}, lumen.Ambient{}, casters, cfg)

	frame := &lumen.GPUFrameInputs{
		Width:  640,
		Height: 480,
		DirectCasters: []lumen.GPUCasterRect{{
			Center:      mgl32.Vec2{30, 40},
			Half:        mgl32.Vec2{10, 5},
			RotationRad: mgl32.DegToRad(45),
		}},
		Passes: make([]lumen.GPUPassInputs, 1),
	}
	frame.Passes[0].HasMask[0] = true
	frame.Passes[0].MaskExtent[0] = mgl32.Vec2{6, 6}
	return plan, frame
}

func TestPackPassUniformsLayout(t *testing.T) {
	plan, frame := testPlan()
	buf := PackPassUniforms(plan, frame, 0)

	if len(buf) != PassUniformsSize {
		t.Fatalf("expected %d bytes, got %d", PassUniformsSize, len(buf))
	}

	// Point light in slot 0.
	if f32At(buf, 0) != 100 || f32At(buf, 4) != 200 || f32At(buf, 8) != 10 {
		t.Errorf("slot 0 position wrong: %v %v %v", f32At(buf, 0), f32At(buf, 4), f32At(buf, 8))
	}
	if f32At(buf, 12) != 300 {
		t.Errorf("slot 0 radius wrong: %v", f32At(buf, 12))
	}
	if f32At(buf, 32) != 1 || f32At(buf, 36) != 0.5 || f32At(buf, 40) != 0.25 {
		t.Errorf("slot 0 color wrong")
	}
	if f32At(buf, 44) != 2 {
		t.Errorf("slot 0 intensity wrong: %v", f32At(buf, 44))
	}
	// params: softness, hasMask, maskRotation (radians), castsShadows.
	if f32At(buf, 52) != 1 {
		t.Errorf("slot 0 hasMask flag wrong: %v", f32At(buf, 52))
	}
	if got := f32At(buf, 56); got != mgl32.DegToRad(90) {
		t.Errorf("slot 0 mask rotation wrong: %v", got)
	}
	if f32At(buf, 60) != 1 {
		t.Errorf("slot 0 castsShadows flag wrong: %v", f32At(buf, 60))
	}
	// mask_info: offset.xy, extent.zw.
	if f32At(buf, 64) != 4 || f32At(buf, 68) != -2 {
		t.Errorf("slot 0 mask offset wrong")
	}
	if f32At(buf, 72) != 6 || f32At(buf, 76) != 6 {
		t.Errorf("slot 0 mask extent wrong")
	}

	// Spot light in slot 4 (offset 320).
	if f32At(buf, 320) != 50 || f32At(buf, 324) != 60 || f32At(buf, 328) != 20 {
		t.Errorf("slot 4 position wrong")
	}
	if got := f32At(buf, 348); got != mgl32.DegToRad(30) {
		t.Errorf("slot 4 cone angle wrong: %v", got)
	}
	if f32At(buf, 368) != 0.5 {
		t.Errorf("slot 4 softness wrong: %v", f32At(buf, 368))
	}

	// Directional light in slot 8 (offset 640).
	if f32At(buf, 656) != 0.2 || f32At(buf, 660) != 0.4 || f32At(buf, 664) != -1 {
		t.Errorf("slot 8 direction wrong")
	}
	if f32At(buf, 684) != 0.5 {
		t.Errorf("slot 8 intensity wrong: %v", f32At(buf, 684))
	}

	// Caster 0 at the caster block.
	if f32At(buf, 800) != 30 || f32At(buf, 804) != 40 {
		t.Errorf("caster center wrong")
	}
	if f32At(buf, 808) != 10 || f32At(buf, 812) != 5 {
		t.Errorf("caster half extents wrong")
	}
	if got := f32At(buf, 816); got != mgl32.DegToRad(45) {
		t.Errorf("caster rotation wrong: %v", got)
	}

	// counts: point, spot, directional, shadow mode.
	if u32At(buf, 928) != 1 || u32At(buf, 932) != 1 || u32At(buf, 936) != 1 {
		t.Errorf("light counts wrong: %d %d %d", u32At(buf, 928), u32At(buf, 932), u32At(buf, 936))
	}
	if u32At(buf, 940) != 0 {
		t.Errorf("expected direct shadow mode, got %d", u32At(buf, 940))
	}

	// shadow config block.
	if f32At(buf, 944) != 0.5 || f32At(buf, 948) != 500 || f32At(buf, 952) != 100 || f32At(buf, 956) != 1 {
		t.Errorf("shadow block wrong")
	}

	// screen block.
	if f32At(buf, 960) != 640 || f32At(buf, 964) != 480 || f32At(buf, 968) != 1 {
		t.Errorf("screen block wrong")
	}
}

func TestPackPassUniformsEmptySlots(t *testing.T) {
	plan := lumen.PlanFrame(nil, lumen.Ambient{}, nil, lumen.DefaultShadowConfig())
	plan.Passes = append(plan.Passes, lumen.Pass{})
	frame := &lumen.GPUFrameInputs{Width: 64, Height: 64, Passes: make([]lumen.GPUPassInputs, 1)}

	buf := PackPassUniforms(plan, frame, 0)
	if u32At(buf, 928) != 0 || u32At(buf, 932) != 0 || u32At(buf, 936) != 0 {
		t.Errorf("empty pass must pack zero counts")
	}
	for off := 0; off < 800; off += 4 {
		if buf[off] != 0 || buf[off+1] != 0 || buf[off+2] != 0 || buf[off+3] != 0 {
			t.Fatalf("unused light slot bytes must stay zero at offset %d", off)
		}
	}
}

func TestPackCompositeUniforms(t *testing.T) {
	ambient := lumen.Ambient{Color: mgl32.Vec3{0.4, 0.2, 0.1}, Intensity: 0.5}
	buf := PackCompositeUniforms(ambient, mgl32.Vec3{1, 0.5, 0.25})

	if len(buf) != CompositeUniformsSize {
		t.Fatalf("expected %d bytes, got %d", CompositeUniformsSize, len(buf))
	}
	if f32At(buf, 0) != 0.2 || f32At(buf, 4) != 0.1 || f32At(buf, 8) != 0.05 {
		t.Errorf("ambient must be premultiplied by intensity: %v %v %v",
			f32At(buf, 0), f32At(buf, 4), f32At(buf, 8))
	}
	if f32At(buf, 16) != 1 || f32At(buf, 20) != 0.5 || f32At(buf, 24) != 0.25 {
		t.Errorf("tint wrong")
	}
}
