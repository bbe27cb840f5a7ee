package avatar3d

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type fakeBone struct {
	rot mgl64.Vec3
	pos mgl64.Vec3
}

func (b *fakeBone) Rotation() mgl64.Vec3     { return b.rot }
func (b *fakeBone) SetRotation(r mgl64.Vec3) { b.rot = r }
func (b *fakeBone) Position() mgl64.Vec3     { return b.pos }
func (b *fakeBone) SetPosition(p mgl64.Vec3) { b.pos = p }

type fakeRig struct {
	bones     map[BoneName]*fakeBone
	root      *fakeBone
	supported map[string]bool // nil accepts every name
	weights   map[string]float64
	disposed  bool
}

func newFakeRig(names ...BoneName) *fakeRig {
	if len(names) == 0 {
		names = TrackedBones
	}
	r := &fakeRig{
		bones:   make(map[BoneName]*fakeBone, len(names)),
		root:    &fakeBone{},
		weights: make(map[string]float64),
	}
	for _, n := range names {
		r.bones[n] = &fakeBone{}
	}
	return r
}

func (r *fakeRig) Bone(name BoneName) (Transform, bool) {
	b, ok := r.bones[name]
	if !ok {
		return nil, false
	}
	return b, true
}

func (r *fakeRig) Root() Transform { return r.root }

func (r *fakeRig) SetExpression(name string, w float64) error {
	if r.supported != nil && !r.supported[name] {
		return fmt.Errorf("no expression %q", name)
	}
	r.weights[name] = w
	return nil
}

func (r *fakeRig) Dispose() { r.disposed = true }

// listingRig also reports its expression table.
type listingRig struct {
	*fakeRig
}

func (r listingRig) HasExpression(name string) bool {
	return r.supported == nil || r.supported[name]
}

func stepFrames(n int, dt float64, fn func(dt float64)) {
	for i := 0; i < n; i++ {
		fn(dt)
	}
}
