package lumen

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// PixelInput is everything the shading stage consumes for one pixel. The
// surface lies in the z=0 plane; Normal zero means flat (0,0,1).
type PixelInput struct {
	WorldPos        mgl32.Vec2
	Albedo          mgl32.Vec4 // premultiplied nothing; plain RGBA in [0,1]
	Normal          mgl32.Vec3
	ReceivesShadows bool
}

func (px *PixelInput) normal() mgl32.Vec3 {
	if px.Normal.Len() < 1e-6 {
		return mgl32.Vec3{0, 0, 1}
	}
	return px.Normal.Normalize()
}

// Shader evaluates the per-pixel lighting for one frame plan. It is built
// per frame from the plan, the asset handles, and (in occluder mode) the
// rasterized occlusion buffer, and holds no other state: shading the same
// snapshot twice is bit-identical.
type Shader struct {
	plan   *FramePlan
	assets *AssetServer
	source ShadowSource
}

// NewShader binds a plan to its shadow representation. occluder may be nil
// in direct mode.
func NewShader(plan *FramePlan, assets *AssetServer, occluder *OccluderBuffer) *Shader {
	return &Shader{
		plan:   plan,
		assets: assets,
		source: shadowSourceFor(plan, assets, occluder),
	}
}

// Shade composes the full lit color for one pixel: ambient base plus every
// pass, then the global tint. Output alpha comes from the surface alpha.
func (s *Shader) Shade(px PixelInput) mgl32.Vec4 {
	sum := mgl32.Vec3{}
	for i := range s.plan.Passes {
		sum = sum.Add(s.ShadePass(&s.plan.Passes[i], px))
	}
	return Composite(s.plan.Ambient, px.Albedo, sum, s.plan.Tint)
}

// ShadePass computes one pass's partial lit color: the sum of its light
// contributions, shadows and masks applied per light.
func (s *Shader) ShadePass(pass *Pass, px PixelInput) mgl32.Vec3 {
	albedo := px.Albedo.Vec3()
	normal := px.normal()
	out := mgl32.Vec3{}

	for _, l := range pass.Point {
		out = out.Add(s.pointContribution(l, px, albedo, normal))
	}
	for _, l := range pass.Spot {
		out = out.Add(s.spotContribution(l, px, albedo, normal))
	}
	for _, l := range pass.Directional {
		out = out.Add(s.directionalContribution(l, px, albedo, normal))
	}
	return out
}

// positionalTerm computes the shared point/spot geometry: the vector to
// the light, the screen-space distance, and the diffuse and attenuation
// factors. A light below the plane (negative Z) has the vector's vertical
// component sign-flipped before normalization, so it lights the surface as
// if cast upward from beneath; a long-standing quirk kept for
// compatibility.
func positionalTerm(lightPos mgl32.Vec3, radius float32, px *PixelInput, normal mgl32.Vec3) (ndotl, atten float32, toLight mgl32.Vec3) {
	lv := mgl32.Vec3{
		lightPos.X() - px.WorldPos.X(),
		lightPos.Y() - px.WorldPos.Y(),
		lightPos.Z(),
	}
	if lightPos.Z() < 0 {
		lv[2] = -lv[2]
	}

	dist := math32.Hypot(lv.X(), lv.Y())
	atten = 1
	if radius > 0 {
		atten = clamp01(1 - dist/radius)
		atten *= atten
	}

	toLight = lv
	if l := lv.Len(); l > 1e-6 {
		toLight = lv.Mul(1 / l)
	}
	ndotl = math32.Max(normal.Dot(toLight), 0)
	return ndotl, atten, toLight
}

func (s *Shader) pointContribution(l *PointLight, px PixelInput, albedo, normal mgl32.Vec3) mgl32.Vec3 {
	ndotl, atten, _ := positionalTerm(l.Position, l.Radius, &px, normal)
	factor := ndotl * atten
	if factor <= 0 {
		return mgl32.Vec3{}
	}
	factor *= s.maskFactor(l.Mask, l.Position, px.WorldPos)
	factor *= s.shadowFactor(&l.LightCommon, px, func(src ShadowSource) float32 {
		return marchPositional(src, px.WorldPos, l.Position, s.plan.Shadow)
	})
	return scaleColor(albedo, l.Color, l.Intensity*factor)
}

func (s *Shader) spotContribution(l *SpotLight, px PixelInput, albedo, normal mgl32.Vec3) mgl32.Vec3 {
	ndotl, atten, toLight := positionalTerm(l.Position, l.Radius, &px, normal)

	cone := float32(1)
	softness := clamp01(l.Softness)
	if l.ConeAngle > 0 {
		coneRad := mgl32.DegToRad(l.ConeAngle)
		innerCos := math32.Cos(coneRad / 2)
		outerCos := math32.Cos(coneRad)
		cosAngle := toLight.Mul(-1).Dot(safeDirection(l.Direction))
		cone = smoothstep(outerCos, innerCos, cosAngle)
	}

	factor := ndotl * atten * mix(1, cone, softness) * cone
	if factor <= 0 {
		return mgl32.Vec3{}
	}
	factor *= s.maskFactor(l.Mask, l.Position, px.WorldPos)
	factor *= s.shadowFactor(&l.LightCommon, px, func(src ShadowSource) float32 {
		return marchPositional(src, px.WorldPos, l.Position, s.plan.Shadow)
	})
	return scaleColor(albedo, l.Color, l.Intensity*factor)
}

func (s *Shader) directionalContribution(l *DirectionalLight, px PixelInput, albedo, normal mgl32.Vec3) mgl32.Vec3 {
	toLight := safeDirection(l.Direction).Mul(-1)
	ndotl := math32.Max(normal.Dot(toLight), 0)
	if ndotl <= 0 {
		return mgl32.Vec3{}
	}
	factor := ndotl * s.shadowFactor(&l.LightCommon, px, func(src ShadowSource) float32 {
		return marchDirectional(src, px.WorldPos, l.Direction, s.plan.Shadow)
	})
	return scaleColor(albedo, l.Color, l.Intensity*factor)
}

// maskFactor samples the light's mask in light-local space. The world
// position is translated to the light, counter-rotated, divided by the
// mask's scaled pixel size and recentered; outside the mask the light is
// fully masked out. Scale=1 reproduces the mask at its literal pixel
// dimensions.
func (s *Shader) maskFactor(m *Mask, lightPos mgl32.Vec3, worldPos mgl32.Vec2) float32 {
	img := s.assets.resolveMask(m)
	if img == nil {
		return 1
	}

	local := worldPos.Sub(mgl32.Vec2{lightPos.X(), lightPos.Y()}).Sub(m.Offset)
	if m.RotationDeg != 0 {
		local = rotateVec2(local, -m.RotationDeg)
	}
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}

	u := local.X()/(scale*float32(img.Width)) + 0.5
	v := local.Y()/(scale*float32(img.Height)) + 0.5
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return 0
	}
	return img.Red(int(u*float32(img.Width)), int(v*float32(img.Height)))
}

// shadowFactor runs the ray march for shadow-enabled lights; everything
// else passes through unshadowed. Evaluated last so full occlusion
// suppresses masked light entirely.
func (s *Shader) shadowFactor(c *LightCommon, px PixelInput, marchFn func(ShadowSource) float32) float32 {
	if s.source == nil || !s.plan.Shadow.Enabled || !c.CastsShadows || !px.ReceivesShadows {
		return 1
	}
	return marchFn(s.source)
}

func scaleColor(albedo, lightColor mgl32.Vec3, k float32) mgl32.Vec3 {
	return mgl32.Vec3{
		albedo.X() * lightColor.X() * k,
		albedo.Y() * lightColor.Y() * k,
		albedo.Z() * lightColor.Z() * k,
	}
}
