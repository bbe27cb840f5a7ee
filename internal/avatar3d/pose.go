package avatar3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Default upper-arm rest angles used when forcing an A-pose.
const (
	aPoseArmZ = math.Pi / 2.5
	aPoseArmY = 0.1
)

// BaseTransform is the rest transform of one bone, captured after load.
type BaseTransform struct {
	Rotation mgl64.Vec3
	Position mgl64.Vec3
}

// PoseStore holds the base pose every animation layer offsets from.
type PoseStore struct {
	bases map[BoneName]BaseTransform
}

func NewPoseStore() *PoseStore {
	return &PoseStore{bases: make(map[BoneName]BaseTransform)}
}

// Capture records the current transform of every tracked bone and
// forgets anything captured from a previous rig.
func (p *PoseStore) Capture(bones BoneAccessor) {
	p.bases = make(map[BoneName]BaseTransform, len(TrackedBones))
	if bones == nil {
		return
	}
	for _, name := range TrackedBones {
		t, ok := bones.Bone(name)
		if !ok || t == nil {
			continue
		}
		p.bases[name] = BaseTransform{Rotation: t.Rotation(), Position: t.Position()}
	}
}

// Base returns the captured transform, or identity for an absent bone.
func (p *PoseStore) Base(name BoneName) BaseTransform {
	return p.bases[name]
}

func (p *PoseStore) Has(name BoneName) bool {
	_, ok := p.bases[name]
	return ok
}

// Len is the number of bones captured.
func (p *PoseStore) Len() int {
	return len(p.bases)
}

func (p *PoseStore) Clear() {
	p.bases = make(map[BoneName]BaseTransform)
}

// ApplyAPose lowers the upper arms from a T-pose into a relaxed A-pose.
// It must run before Capture.
func ApplyAPose(bones BoneAccessor) {
	if bones == nil {
		return
	}
	if t, ok := bones.Bone(BoneLeftUpperArm); ok && t != nil {
		r := t.Rotation()
		t.SetRotation(mgl64.Vec3{r.X(), aPoseArmY, -aPoseArmZ})
	}
	if t, ok := bones.Bone(BoneRightUpperArm); ok && t != nil {
		r := t.Rotation()
		t.SetRotation(mgl64.Vec3{r.X(), -aPoseArmY, aPoseArmZ})
	}
}
