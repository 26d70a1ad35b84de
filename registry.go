package lumen

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// LightRegistry holds the authoritative light set and the ambient term.
// Registration order is stable: snapshots list lights in the order they
// were first added, which is what makes pass packing deterministic.
type LightRegistry struct {
	lights  []Light
	index   map[string]int
	ambient Ambient
}

func NewLightRegistry() *LightRegistry {
	return &LightRegistry{
		index: make(map[string]int),
	}
}

// Add registers a light and returns its id. A light without an id gets a
// generated one; re-adding an existing id replaces the entry in place so
// registration order is preserved.
func (r *LightRegistry) Add(l Light) string {
	c := l.Common()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if i, ok := r.index[c.ID]; ok {
		r.lights[i] = l
		return c.ID
	}
	r.index[c.ID] = len(r.lights)
	r.lights = append(r.lights, l)
	return c.ID
}

func (r *LightRegistry) Remove(id string) {
	i, ok := r.index[id]
	if !ok {
		return
	}
	r.lights = append(r.lights[:i], r.lights[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.lights); j++ {
		r.index[r.lights[j].Common().ID] = j
	}
}

func (r *LightRegistry) Get(id string) Light {
	if i, ok := r.index[id]; ok {
		return r.lights[i]
	}
	return nil
}

func (r *LightRegistry) Len() int { return len(r.lights) }

// SetPosition moves a positional light. Host-driven lights (FollowMouse)
// are updated through this between frames; directional lights ignore it.
func (r *LightRegistry) SetPosition(id string, pos mgl32.Vec3) {
	switch l := r.Get(id).(type) {
	case *PointLight:
		l.Position = pos
	case *SpotLight:
		l.Position = pos
	}
}

func (r *LightRegistry) SetAmbient(a Ambient) { r.ambient = a }
func (r *LightRegistry) Ambient() Ambient     { return r.ambient }

// Snapshot deep-copies the registry so a frame shades an immutable set.
func (r *LightRegistry) Snapshot() []Light {
	out := make([]Light, len(r.lights))
	for i, l := range r.lights {
		out[i] = cloneLight(l)
	}
	return out
}

func cloneLight(l Light) Light {
	switch v := l.(type) {
	case *PointLight:
		c := *v
		c.Mask = cloneMask(v.Mask)
		return &c
	case *SpotLight:
		c := *v
		c.Mask = cloneMask(v.Mask)
		return &c
	case *DirectionalLight:
		c := *v
		return &c
	}
	return l
}

func cloneMask(m *Mask) *Mask {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// CasterRegistry holds the surfaces participating in shadow casting and
// receiving. Pure data; validation happens at document load.
type CasterRegistry struct {
	casters []Caster
	index   map[string]int
}

func NewCasterRegistry() *CasterRegistry {
	return &CasterRegistry{
		index: make(map[string]int),
	}
}

func (r *CasterRegistry) Add(c Caster) string {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if i, ok := r.index[c.ID]; ok {
		r.casters[i] = c
		return c.ID
	}
	r.index[c.ID] = len(r.casters)
	r.casters = append(r.casters, c)
	return c.ID
}

func (r *CasterRegistry) Remove(id string) {
	i, ok := r.index[id]
	if !ok {
		return
	}
	r.casters = append(r.casters[:i], r.casters[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.casters); j++ {
		r.index[r.casters[j].ID] = j
	}
}

func (r *CasterRegistry) Get(id string) (Caster, bool) {
	if i, ok := r.index[id]; ok {
		return r.casters[i], true
	}
	return Caster{}, false
}

func (r *CasterRegistry) Len() int { return len(r.casters) }

// Snapshot returns the casters ordered by ZIndex (stable within equal
// indices), which is the draw order the occluder rasterizer expects.
func (r *CasterRegistry) Snapshot() []Caster {
	out := make([]Caster, len(r.casters))
	copy(out, r.casters)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZIndex < out[j].ZIndex
	})
	return out
}
