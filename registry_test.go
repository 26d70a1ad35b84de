package lumen

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLightRegistryAddAssignsId(t *testing.T) {
	r := NewLightRegistry()
	id := r.Add(makePoint(""))
	require.NotEmpty(t, id)
	assert.NotNil(t, r.Get(id))
	assert.Equal(t, 1, r.Len())
}

func TestLightRegistryReplacePreservesOrder(t *testing.T) {
	r := NewLightRegistry()
	r.Add(makePoint("a"))
	r.Add(makePoint("b"))
	r.Add(makePoint("c"))

	replacement := makePoint("b")
	replacement.Intensity = 9
	r.Add(replacement)

	require.Equal(t, 3, r.Len())
	snap := r.Snapshot()
	assert.Equal(t, "a", snap[0].Common().ID)
	assert.Equal(t, "b", snap[1].Common().ID)
	assert.Equal(t, "c", snap[2].Common().ID)
	assert.InDelta(t, 9, snap[1].Common().Intensity, 1e-6)
}

func TestLightRegistryRemoveReindexes(t *testing.T) {
	r := NewLightRegistry()
	r.Add(makePoint("a"))
	r.Add(makePoint("b"))
	r.Add(makePoint("c"))

	r.Remove("b")
	require.Equal(t, 2, r.Len())
	assert.Nil(t, r.Get("b"))
	assert.NotNil(t, r.Get("c"))

	snap := r.Snapshot()
	assert.Equal(t, "a", snap[0].Common().ID)
	assert.Equal(t, "c", snap[1].Common().ID)

	// Removing an unknown id is a no-op.
	r.Remove("nope")
	assert.Equal(t, 2, r.Len())
}

func TestLightRegistrySnapshotIsDeepCopy(t *testing.T) {
	r := NewLightRegistry()
	l := makePoint("p")
	l.Mask = &Mask{Image: "m.png", Scale: 1}
	r.Add(l)

	snap := r.Snapshot()
	snap[0].(*PointLight).Position = mgl32.Vec3{99, 99, 99}
	snap[0].(*PointLight).Mask.Scale = 42

	orig := r.Get("p").(*PointLight)
	assert.Equal(t, mgl32.Vec3{}, orig.Position, "snapshot mutation must not leak")
	assert.InDelta(t, 1, orig.Mask.Scale, 1e-6)
}

func TestLightRegistrySetPosition(t *testing.T) {
	r := NewLightRegistry()
	r.Add(makePoint("p"))
	r.Add(makeDirectional("d"))

	r.SetPosition("p", mgl32.Vec3{5, 6, 7})
	assert.Equal(t, mgl32.Vec3{5, 6, 7}, r.Get("p").(*PointLight).Position)

	// Directional lights have no position; must not panic.
	r.SetPosition("d", mgl32.Vec3{1, 2, 3})
}

func TestCasterRegistrySnapshotZIndexOrder(t *testing.T) {
	r := NewCasterRegistry()
	r.Add(Caster{ID: "top", ZIndex: 5})
	r.Add(Caster{ID: "bottom", ZIndex: -1})
	r.Add(Caster{ID: "mid1", ZIndex: 2})
	r.Add(Caster{ID: "mid2", ZIndex: 2})

	snap := r.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, "bottom", snap[0].ID)
	assert.Equal(t, "mid1", snap[1].ID, "equal zIndex keeps registration order")
	assert.Equal(t, "mid2", snap[2].ID)
	assert.Equal(t, "top", snap[3].ID)
}

func TestCasterRegistryAddRemove(t *testing.T) {
	r := NewCasterRegistry()
	id := r.Add(Caster{})
	require.NotEmpty(t, id)

	c, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, c.ID)

	r.Remove(id)
	_, ok = r.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}
