package avatar3d

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSafeRigIgnoresMissingTargets(t *testing.T) {
	rig := newFakeRig(BoneHead)
	rig.supported = map[string]bool{ExprHappy: true}
	s := NewSafeRig(rig, zerolog.Nop())

	called := 0
	s.WithBone(BoneHips, func(Transform) { called++ })
	s.WithBone(BoneHead, func(tr Transform) {
		called++
		tr.SetRotation(mgl64.Vec3{1, 2, 3})
	})
	assert.Equal(t, 1, called)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, rig.bones[BoneHead].rot)

	s.SetExpression(ExprHappy, 0.5)
	s.SetExpression("sorrow", 0.5)
	s.SetExpression("sorrow", 0.2)
	assert.Equal(t, 0.5, rig.weights[ExprHappy])
	assert.Equal(t, map[string]int{"sorrow": 2}, s.Misses())
}

func TestSafeRigWithoutModel(t *testing.T) {
	s := NewSafeRig(nil, zerolog.Nop())
	assert.False(t, s.Loaded())
	assert.NotPanics(t, func() {
		s.WithBone(BoneHead, func(Transform) { t.Fatal("no bones without a model") })
		s.WithRoot(func(Transform) { t.Fatal("no root without a model") })
		s.SetExpression(ExprHappy, 1)
		s.Dispose()
	})
}
