package lumen

import (
	"github.com/go-gl/mathgl/mgl32"
)

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeSpot        LightType = 1
	LightTypeDirectional LightType = 2
)

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spotlight"
	case LightTypeDirectional:
		return "directional"
	}
	return "invalid"
}

// Mask shapes a light through a grayscale image. Scale is in actual pixel
// units: Scale=1 reproduces the mask at its literal pixel dimensions.
type Mask struct {
	Image       string // asset name, resolved through the AssetServer
	Offset      mgl32.Vec2
	RotationDeg float32
	Scale       float32
}

// LightCommon carries the fields shared by every light type.
type LightCommon struct {
	ID           string
	Enabled      bool
	Color        mgl32.Vec3 // RGB in [0,1]
	Intensity    float32
	CastsShadows bool
	FollowMouse  bool // position driven by the host, not by this engine
}

// Light is the closed set of light variants. Type-specific fields live on
// the concrete structs so invalid combinations cannot be represented.
type Light interface {
	Common() *LightCommon
	Type() LightType
}

type PointLight struct {
	LightCommon
	Position mgl32.Vec3
	Radius   float32 // attenuation distance; <= 0 means no falloff
	Mask     *Mask
}

type SpotLight struct {
	LightCommon
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Radius    float32
	ConeAngle float32 // full cone angle in degrees; <= 0 means full cone
	Softness  float32 // [0,1]
	Mask      *Mask
}

type DirectionalLight struct {
	LightCommon
	Direction mgl32.Vec3
}

func (l *PointLight) Common() *LightCommon       { return &l.LightCommon }
func (l *PointLight) Type() LightType            { return LightTypePoint }
func (l *SpotLight) Common() *LightCommon        { return &l.LightCommon }
func (l *SpotLight) Type() LightType             { return LightTypeSpot }
func (l *DirectionalLight) Common() *LightCommon { return &l.LightCommon }
func (l *DirectionalLight) Type() LightType      { return LightTypeDirectional }

// Ambient is the uniform base term added before any light contribution.
type Ambient struct {
	Color     mgl32.Vec3
	Intensity float32
}

// ShadowConfig is the global shadow tuning shared by all lights.
type ShadowConfig struct {
	Enabled   bool
	Strength  float32 // shadow darkness, [0,1]
	MaxLength float32 // caps ray-march distance, pixels
	Height    float32 // occluder height; taller height throws longer shadows
}

func DefaultShadowConfig() ShadowConfig {
	return ShadowConfig{
		Enabled:   true,
		Strength:  0.5,
		MaxLength: 500,
		Height:    100,
	}
}

// defaultDirection stands in for zero-length light directions.
var defaultDirection = mgl32.Vec3{0, 1, 0}

func safeDirection(d mgl32.Vec3) mgl32.Vec3 {
	if d.Len() < 1e-6 {
		return defaultDirection
	}
	return d.Normalize()
}
