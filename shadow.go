package lumen

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// maxShadowSteps caps the ray march. A ray that cannot resolve within the
// cap is treated as unoccluded; shadows fail open, never stall a frame.
const maxShadowSteps = 64

// ShadowSource answers point-coverage queries for the shadow ray march.
// The shading stage is representation-agnostic: the planner picks either
// the per-caster rectangle test or the shared occlusion buffer and the
// march below treats them identically.
type ShadowSource interface {
	Occluded(p mgl32.Vec2) bool
}

// bufferShadow samples the shared per-frame occlusion buffer.
type bufferShadow struct {
	buf *OccluderBuffer
}

func (s bufferShadow) Occluded(p mgl32.Vec2) bool {
	return s.buf.Occluded(p.X(), p.Y())
}

// directShadow tests each shadow caster's rotated rectangle, sampling the
// sprite's own alpha where an image is available. Query points snap to
// texel centers so both representations agree at the mode boundary.
type directShadow struct {
	casters []Caster
	halves  []mgl32.Vec2
	images  []*ImageAsset
}

func newDirectShadow(casters []Caster, assets *AssetServer) *directShadow {
	s := &directShadow{
		casters: casters,
		halves:  make([]mgl32.Vec2, len(casters)),
		images:  make([]*ImageAsset, len(casters)),
	}
	for i := range casters {
		s.halves[i] = casters[i].footprint(assets)
		s.images[i] = assets.lookup(casters[i].Image)
	}
	return s
}

func (s *directShadow) Occluded(p mgl32.Vec2) bool {
	q := texelCenter(int(math32.Floor(p.X())), int(math32.Floor(p.Y())))
	for i := range s.casters {
		half := s.halves[i]
		if half.X() <= 0 || half.Y() <= 0 {
			continue
		}
		local := s.casters[i].worldToLocal(q)
		if math32.Abs(local.X()) > half.X() || math32.Abs(local.Y()) > half.Y() {
			continue
		}
		if img := s.images[i]; img != nil {
			u := local.X()/(2*half.X()) + 0.5
			v := local.Y()/(2*half.Y()) + 0.5
			if img.Alpha(int(u*float32(img.Width)), int(v*float32(img.Height))) <= OcclusionAlphaThreshold {
				continue
			}
		}
		return true
	}
	return false
}

// shadowSourceFor builds the representation the plan selected. In occluder
// mode the buffer must already be rasterized for this frame.
func shadowSourceFor(plan *FramePlan, assets *AssetServer, buf *OccluderBuffer) ShadowSource {
	if len(plan.ShadowCasters) == 0 {
		return nil
	}
	if plan.ShadowMode == ShadowModeOccluder {
		if buf == nil {
			return nil
		}
		return bufferShadow{buf: buf}
	}
	return newDirectShadow(plan.ShadowCasters, assets)
}

// marchPositional walks from the shaded point toward a positional light
// and returns the light multiplier: (1-strength) on any sampled occlusion,
// 1 otherwise. The reach is capped by the distance to the light, the
// configured max length, and the height-scaled projection: an occluder of
// the configured height only blocks rays whose elevation toward the light
// is still below it.
func marchPositional(src ShadowSource, p mgl32.Vec2, lightPos mgl32.Vec3, cfg ShadowConfig) float32 {
	delta := mgl32.Vec2{lightPos.X() - p.X(), lightPos.Y() - p.Y()}
	dist := delta.Len()
	if dist < 1e-6 {
		return 1
	}
	reach := math32.Min(dist, cfg.MaxLength)
	if lightPos.Z() > 0 {
		reach = math32.Min(reach, cfg.Height*dist/lightPos.Z())
	}
	return march(src, p, delta.Mul(1/dist), reach, cfg.Strength)
}

// marchDirectional walks toward a directional light. There is no distance
// to the light; only the flat shadow height and the max length cap apply.
func marchDirectional(src ShadowSource, p mgl32.Vec2, direction mgl32.Vec3, cfg ShadowConfig) float32 {
	toLight := safeDirection(direction).Mul(-1)
	horiz := mgl32.Vec2{toLight.X(), toLight.Y()}
	hl := horiz.Len()
	if hl < 1e-6 {
		// Straight overhead; nothing on the plane can block it.
		return 1
	}
	reach := cfg.MaxLength
	if rate := toLight.Z() / hl; rate > 0 {
		reach = math32.Min(reach, cfg.Height/rate)
	}
	return march(src, p, horiz.Mul(1/hl), reach, cfg.Strength)
}

func march(src ShadowSource, p, dir mgl32.Vec2, reach, strength float32) float32 {
	if reach <= 0 {
		return 1
	}
	step := reach / maxShadowSteps
	for i := 1; i <= maxShadowSteps; i++ {
		t := float32(i) * step
		if t > reach {
			break
		}
		if src.Occluded(p.Add(dir.Mul(t))) {
			return 1 - strength
		}
	}
	return 1
}
