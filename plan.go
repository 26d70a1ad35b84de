package lumen

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Per-pass light budgets. A frame with more enabled lights than one pass
// can hold is split into several passes composited additively.
const (
	MaxPointPerPass       = 4
	MaxSpotPerPass        = 4
	MaxDirectionalPerPass = 2
)

// DirectCasterLimit is the largest shadow-caster count served by passing
// each caster's transform directly to the shading stage. Above it the
// casters are rasterized once into a shared occlusion buffer instead.
const DirectCasterLimit = 4

type ShadowMode uint32

const (
	ShadowModeDirect   ShadowMode = 0
	ShadowModeOccluder ShadowMode = 1
)

func (m ShadowMode) String() string {
	if m == ShadowModeOccluder {
		return "occluder"
	}
	return "direct"
}

// Pass is one shading invocation covering a bounded light subset.
type Pass struct {
	Point       []*PointLight
	Spot        []*SpotLight
	Directional []*DirectionalLight
}

// FramePlan is the per-frame schedule: the ordered pass list, the shadow
// representation to build, and the immutable scene snapshot the passes
// shade. Plans are recomputed every frame and never persisted.
type FramePlan struct {
	Passes     []Pass
	ShadowMode ShadowMode

	Ambient Ambient
	Tint    mgl32.Vec3 // multiplies the composed result; white is neutral
	Shadow  ShadowConfig

	Casters       []Caster // full snapshot in zIndex order
	ShadowCasters []Caster // the subset with CastsShadows, same order
}

// PlanFrame partitions the enabled lights into passes and picks the shadow
// representation from the caster count. It never fails: any input,
// including zero lights, yields a valid (possibly empty) pass list.
func PlanFrame(lights []Light, ambient Ambient, casters []Caster, cfg ShadowConfig) *FramePlan {
	var points []*PointLight
	var spots []*SpotLight
	var directionals []*DirectionalLight

	for _, l := range lights {
		if !l.Common().Enabled {
			continue
		}
		switch v := l.(type) {
		case *PointLight:
			points = append(points, v)
		case *SpotLight:
			spots = append(spots, v)
		case *DirectionalLight:
			directionals = append(directionals, v)
		}
	}

	passCount := maxInt(
		ceilDiv(len(points), MaxPointPerPass),
		ceilDiv(len(spots), MaxSpotPerPass),
		ceilDiv(len(directionals), MaxDirectionalPerPass),
	)

	passes := make([]Pass, 0, passCount)
	for p := 0; p < passCount; p++ {
		passes = append(passes, Pass{
			Point:       slicePass(points, p, MaxPointPerPass),
			Spot:        slicePass(spots, p, MaxSpotPerPass),
			Directional: slicePass(directionals, p, MaxDirectionalPerPass),
		})
	}

	var shadowCasters []Caster
	for _, c := range casters {
		if c.CastsShadows && c.Visible {
			shadowCasters = append(shadowCasters, c)
		}
	}

	mode := ShadowModeDirect
	if len(shadowCasters) > DirectCasterLimit {
		mode = ShadowModeOccluder
	}

	return &FramePlan{
		Passes:        passes,
		ShadowMode:    mode,
		Ambient:       ambient,
		Tint:          mgl32.Vec3{1, 1, 1},
		Shadow:        cfg,
		Casters:       casters,
		ShadowCasters: shadowCasters,
	}
}

// slicePass returns pass p's greedy share of a light list: earlier passes
// fill to capacity before later ones receive anything.
func slicePass[T any](all []T, p, limit int) []T {
	lo := p * limit
	if lo >= len(all) {
		return nil
	}
	hi := lo + limit
	if hi > len(all) {
		hi = len(all)
	}
	return all[lo:hi]
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

func maxInt(vals ...int) int {
	m := 0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
