package lumen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// The host persists lights and scene surfaces as JSON documents. This
// codec is the only wire surface of the engine: pure bytes to snapshots,
// no file or network I/O. Decoding is deliberately forgiving: a malformed
// or missing field falls back to its neutral default so one bad field
// never drops a light. The single fatal condition is an unknown light
// type.

// LightsDocument is the decoded form of the persisted lights file.
type LightsDocument struct {
	Lights  []Light
	Ambient Ambient
	Shadow  ShadowConfig
	Tint    mgl32.Vec3
}

// SceneDocument is the decoded form of the persisted scene file.
type SceneDocument struct {
	Casters []Caster
}

// DecodeLightsDocument parses the lights document. Light entries with
// type "ambient" fold into the ambient term instead of the light list.
func DecodeLightsDocument(data []byte) (*LightsDocument, error) {
	var raw struct {
		Lights       []map[string]any `json:"lights"`
		ShadowConfig map[string]any   `json:"shadowConfig"`
		Tint         any              `json:"tint"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("lights document: %w", err)
	}

	doc := &LightsDocument{
		Shadow: DefaultShadowConfig(),
		Tint:   mgl32.Vec3{1, 1, 1},
	}
	if c, ok := colorField(raw.Tint); ok {
		doc.Tint = c
	}
	if raw.ShadowConfig != nil {
		doc.Shadow = ShadowConfig{
			Enabled:   boolField(raw.ShadowConfig, "enabled", true),
			Strength:  clamp01(floatField(raw.ShadowConfig, "strength", DefaultShadowConfig().Strength)),
			MaxLength: floatField(raw.ShadowConfig, "maxLength", DefaultShadowConfig().MaxLength),
			Height:    floatField(raw.ShadowConfig, "height", DefaultShadowConfig().Height),
		}
	}

	for i, entry := range raw.Lights {
		typ, _ := entry["type"].(string)
		if typ == "ambient" {
			doc.Ambient = Ambient{
				Color:     colorFieldOr(entry, "color", mgl32.Vec3{1, 1, 1}),
				Intensity: floatField(entry, "brightness", 1),
			}
			continue
		}
		l, err := decodeLight(typ, entry)
		if err != nil {
			return nil, fmt.Errorf("lights document: entry %d: %w", i, err)
		}
		doc.Lights = append(doc.Lights, l)
	}
	return doc, nil
}

func decodeLight(typ string, entry map[string]any) (Light, error) {
	common := LightCommon{
		ID:           stringField(entry, "id"),
		Enabled:      boolField(entry, "enabled", true),
		Color:        colorFieldOr(entry, "color", mgl32.Vec3{1, 1, 1}),
		Intensity:    math32.Max(floatField(entry, "brightness", 1), 0),
		CastsShadows: boolField(entry, "castsShadows", false),
		FollowMouse:  boolField(entry, "followMouse", false),
	}
	pos := mgl32.Vec3{
		floatField(entry, "x", 0),
		floatField(entry, "y", 0),
		floatField(entry, "z", 0),
	}

	switch typ {
	case "point":
		return &PointLight{
			LightCommon: common,
			Position:    pos,
			Radius:      floatField(entry, "radius", 0),
			Mask:        decodeMask(entry["mask"]),
		}, nil
	case "spotlight":
		return &SpotLight{
			LightCommon: common,
			Position:    pos,
			Direction:   directionField(entry),
			Radius:      floatField(entry, "radius", 0),
			ConeAngle:   floatField(entry, "coneAngle", 0),
			Softness:    clamp01(floatField(entry, "softness", 0)),
			Mask:        decodeMask(entry["mask"]),
		}, nil
	case "directional":
		return &DirectionalLight{
			LightCommon: common,
			Direction:   directionField(entry),
		}, nil
	}
	return nil, fmt.Errorf("invalid light type %q", typ)
}

// directionField reads directionX/Y/Z, falling back to a flat in-plane
// direction derived from the legacy "angle" field (degrees).
func directionField(entry map[string]any) mgl32.Vec3 {
	d := mgl32.Vec3{
		floatField(entry, "directionX", 0),
		floatField(entry, "directionY", 0),
		floatField(entry, "directionZ", 0),
	}
	if d.Len() > 1e-6 {
		return d
	}
	if _, ok := entry["angle"]; ok {
		rad := mgl32.DegToRad(floatField(entry, "angle", 0))
		sin, cos := math32.Sincos(rad)
		return mgl32.Vec3{cos, sin, 0}
	}
	return mgl32.Vec3{}
}

func decodeMask(v any) *Mask {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	img := stringField(m, "image")
	if img == "" {
		return nil
	}
	scale := floatField(m, "scale", 1)
	if scale <= 0 {
		scale = 1
	}
	return &Mask{
		Image:       img,
		Offset:      mgl32.Vec2{floatField(m, "offsetX", 0), floatField(m, "offsetY", 0)},
		RotationDeg: floatField(m, "rotation", 0),
		Scale:       scale,
	}
}

// DecodeSceneDocument parses the casters document.
func DecodeSceneDocument(data []byte) (*SceneDocument, error) {
	var raw struct {
		Sprites []map[string]any `json:"sprites"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("scene document: %w", err)
	}

	doc := &SceneDocument{}
	for _, entry := range raw.Sprites {
		c := Caster{
			ID:              stringField(entry, "id"),
			Image:           stringField(entry, "image"),
			Normal:          stringField(entry, "normal"),
			Rotation:        floatField(entry, "rotation", 0),
			Scale:           floatField(entry, "scale", 1),
			ZIndex:          int(floatField(entry, "zIndex", 0)),
			CastsShadows:    boolField(entry, "castsShadows", false),
			ReceivesShadows: boolField(entry, "receiveShadows", true),
			UseNormalMap:    boolField(entry, "useNormalMap", false),
			Visible:         boolField(entry, "visible", true),
		}
		if posRaw, ok := entry["position"].(map[string]any); ok {
			c.Position = mgl32.Vec2{
				floatField(posRaw, "x", 0),
				floatField(posRaw, "y", 0),
			}
		}
		doc.Casters = append(doc.Casters, c)
	}
	return doc, nil
}

// EncodeLightsDocument is the inverse of DecodeLightsDocument.
func EncodeLightsDocument(doc *LightsDocument) ([]byte, error) {
	lights := make([]map[string]any, 0, len(doc.Lights)+1)
	lights = append(lights, map[string]any{
		"type":       "ambient",
		"brightness": doc.Ambient.Intensity,
		"color":      formatHexColor(doc.Ambient.Color),
	})
	for _, l := range doc.Lights {
		lights = append(lights, encodeLight(l))
	}
	out := map[string]any{
		"lights": lights,
		"shadowConfig": map[string]any{
			"enabled":   doc.Shadow.Enabled,
			"strength":  doc.Shadow.Strength,
			"maxLength": doc.Shadow.MaxLength,
			"height":    doc.Shadow.Height,
		},
		"tint": formatHexColor(doc.Tint),
	}
	return json.MarshalIndent(out, "", "  ")
}

func encodeLight(l Light) map[string]any {
	c := l.Common()
	entry := map[string]any{
		"id":           c.ID,
		"type":         l.Type().String(),
		"enabled":      c.Enabled,
		"brightness":   c.Intensity,
		"color":        formatHexColor(c.Color),
		"castsShadows": c.CastsShadows,
		"followMouse":  c.FollowMouse,
	}
	switch v := l.(type) {
	case *PointLight:
		entry["x"], entry["y"], entry["z"] = v.Position.X(), v.Position.Y(), v.Position.Z()
		entry["radius"] = v.Radius
		encodeMask(entry, v.Mask)
	case *SpotLight:
		entry["x"], entry["y"], entry["z"] = v.Position.X(), v.Position.Y(), v.Position.Z()
		entry["directionX"], entry["directionY"], entry["directionZ"] = v.Direction.X(), v.Direction.Y(), v.Direction.Z()
		entry["radius"] = v.Radius
		entry["coneAngle"] = v.ConeAngle
		entry["softness"] = v.Softness
		encodeMask(entry, v.Mask)
	case *DirectionalLight:
		entry["directionX"], entry["directionY"], entry["directionZ"] = v.Direction.X(), v.Direction.Y(), v.Direction.Z()
	}
	return entry
}

func encodeMask(entry map[string]any, m *Mask) {
	if m == nil {
		return
	}
	entry["mask"] = map[string]any{
		"image":    m.Image,
		"offsetX":  m.Offset.X(),
		"offsetY":  m.Offset.Y(),
		"rotation": m.RotationDeg,
		"scale":    m.Scale,
	}
}

// EncodeSceneDocument is the inverse of DecodeSceneDocument.
func EncodeSceneDocument(doc *SceneDocument) ([]byte, error) {
	sprites := make([]map[string]any, 0, len(doc.Casters))
	for _, c := range doc.Casters {
		sprites = append(sprites, map[string]any{
			"id":             c.ID,
			"image":          c.Image,
			"normal":         c.Normal,
			"position":       map[string]any{"x": c.Position.X(), "y": c.Position.Y()},
			"rotation":       c.Rotation,
			"scale":          c.Scale,
			"zIndex":         c.ZIndex,
			"castsShadows":   c.CastsShadows,
			"receiveShadows": c.ReceivesShadows,
			"useNormalMap":   c.UseNormalMap,
			"visible":        c.Visible,
		})
	}
	return json.MarshalIndent(map[string]any{"sprites": sprites}, "", "  ")
}

// Field helpers. JSON values that fail their expected type fall back to
// the default instead of failing the document.

func floatField(m map[string]any, key string, def float32) float32 {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return float32(n)
	case string:
		if f, err := strconv.ParseFloat(n, 32); err == nil {
			return float32(f)
		}
	}
	return def
}

func boolField(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func colorFieldOr(m map[string]any, key string, def mgl32.Vec3) mgl32.Vec3 {
	if c, ok := colorField(m[key]); ok {
		return c
	}
	return def
}

// colorField parses the wire color format "0xRRGGBB".
func colorField(v any) (mgl32.Vec3, bool) {
	s, ok := v.(string)
	if !ok {
		return mgl32.Vec3{}, false
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{
		float32(n>>16&0xFF) / 255.0,
		float32(n>>8&0xFF) / 255.0,
		float32(n&0xFF) / 255.0,
	}, true
}

func formatHexColor(c mgl32.Vec3) string {
	r := uint32(clamp01(c.X())*255 + 0.5)
	g := uint32(clamp01(c.Y())*255 + 0.5)
	b := uint32(clamp01(c.Z())*255 + 0.5)
	return fmt.Sprintf("0x%06X", r<<16|g<<8|b)
}
