package lumen

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// mix is GLSL-style linear interpolation.
func mix(a, b, t float32) float32 {
	return a + (b-a)*t
}

// smoothstep is the GLSL cubic hermite step between edge0 and edge1.
func smoothstep(edge0, edge1, x float32) float32 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// texelCenter is the world position sampled for an output texel.
func texelCenter(x, y int) mgl32.Vec2 {
	return mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}
}

// rotateVec2 rotates v by deg degrees counter-clockwise.
func rotateVec2(v mgl32.Vec2, deg float32) mgl32.Vec2 {
	rad := mgl32.DegToRad(deg)
	sin, cos := math32.Sincos(rad)
	return mgl32.Vec2{
		v.X()*cos - v.Y()*sin,
		v.X()*sin + v.Y()*cos,
	}
}
