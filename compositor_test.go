package lumen

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestComposite(t *testing.T) {
	ambient := Ambient{Color: mgl32.Vec3{0.4, 0.4, 0.4}, Intensity: 0.3}
	albedo := mgl32.Vec4{1, 0.5, 0.25, 0.8}
	sum := mgl32.Vec3{0.2, 0.2, 0.2}
	tint := mgl32.Vec3{1, 1, 0.5}

	got := Composite(ambient, albedo, sum, tint)

	// (ambient*albedo + passes) * tint, channel-wise.
	wantR := (0.12*1 + 0.2) * 1
	wantG := (0.12*0.5 + 0.2) * 1
	wantB := (0.12*0.25 + 0.2) * 0.5
	if math32.Abs(got.X()-float32(wantR)) > 1e-6 ||
		math32.Abs(got.Y()-float32(wantG)) > 1e-6 ||
		math32.Abs(got.Z()-float32(wantB)) > 1e-6 {
		t.Errorf("expected (%v,%v,%v), got %v", wantR, wantG, wantB, got.Vec3())
	}
	if got.W() != 0.8 {
		t.Errorf("alpha must pass through from the surface, got %v", got.W())
	}
}

func TestCompositeTintAppliesToAmbientToo(t *testing.T) {
	ambient := Ambient{Color: mgl32.Vec3{1, 1, 1}, Intensity: 1}
	got := Composite(ambient, mgl32.Vec4{1, 1, 1, 1}, mgl32.Vec3{}, mgl32.Vec3{0.5, 0.5, 0.5})
	if got.X() != 0.5 {
		t.Errorf("tint multiplies the composed result including ambient, got %v", got.X())
	}
}

func TestAccumBuffer(t *testing.T) {
	b := NewAccumBuffer(4, 4)
	b.Add(1, 2, mgl32.Vec3{0.25, 0, 0})
	b.Add(1, 2, mgl32.Vec3{0.5, 0.1, 0})

	got := b.At(1, 2)
	if math32.Abs(got.X()-0.75) > 1e-6 || math32.Abs(got.Y()-0.1) > 1e-6 {
		t.Errorf("expected additive accumulation, got %v", got)
	}
	if b.At(0, 0) != (mgl32.Vec3{}) {
		t.Errorf("untouched texel must stay zero")
	}

	b.Reset()
	if b.At(1, 2) != (mgl32.Vec3{}) {
		t.Errorf("reset must clear the buffer")
	}
}
