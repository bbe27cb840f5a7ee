package avatar3d

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

type BoneName string

const (
	BoneHips          BoneName = "hips"
	BoneSpine         BoneName = "spine"
	BoneChest         BoneName = "chest"
	BoneHead          BoneName = "head"
	BoneLeftUpperArm  BoneName = "leftUpperArm"
	BoneRightUpperArm BoneName = "rightUpperArm"
	BoneLeftLowerArm  BoneName = "leftLowerArm"
	BoneRightLowerArm BoneName = "rightLowerArm"
	BoneLeftUpperLeg  BoneName = "leftUpperLeg"
	BoneRightUpperLeg BoneName = "rightUpperLeg"
	BoneLeftLowerLeg  BoneName = "leftLowerLeg"
	BoneRightLowerLeg BoneName = "rightLowerLeg"
)

// TrackedBones lists every bone the animation layers write to.
var TrackedBones = []BoneName{
	BoneChest, BoneSpine, BoneHips, BoneHead,
	BoneLeftUpperArm, BoneRightUpperArm,
	BoneLeftLowerArm, BoneRightLowerArm,
	BoneLeftUpperLeg, BoneRightUpperLeg,
	BoneLeftLowerLeg, BoneRightLowerLeg,
}

// Transform is a mutable handle to a bone (or the scene root).
// Rotation is an XYZ Euler triple in radians.
type Transform interface {
	Rotation() mgl64.Vec3
	SetRotation(mgl64.Vec3)
	Position() mgl64.Vec3
	SetPosition(mgl64.Vec3)
}

// BoneAccessor resolves humanoid bones. ok is false when the model
// does not expose the bone.
type BoneAccessor interface {
	Bone(name BoneName) (Transform, bool)
}

// ExpressionAccessor writes named blendshape weights.
type ExpressionAccessor interface {
	SetExpression(name string, weight float64) error
}

// Rig is a loaded humanoid model as seen by the animation core.
type Rig interface {
	BoneAccessor
	ExpressionAccessor
	Root() Transform
	Dispose()
}

// SafeRig wraps a Rig so that missing bones and unsupported expressions
// become no-ops. A SafeRig around a nil Rig ignores everything.
type SafeRig struct {
	rig    Rig
	logger zerolog.Logger

	mu     sync.Mutex
	misses map[string]int
}

func NewSafeRig(rig Rig, logger zerolog.Logger) *SafeRig {
	return &SafeRig{
		rig:    rig,
		logger: logger,
		misses: make(map[string]int),
	}
}

func (s *SafeRig) Loaded() bool {
	return s != nil && s.rig != nil
}

// WithBone calls fn only when the bone exists.
func (s *SafeRig) WithBone(name BoneName, fn func(Transform)) {
	if !s.Loaded() {
		return
	}
	t, ok := s.rig.Bone(name)
	if !ok || t == nil {
		return
	}
	fn(t)
}

func (s *SafeRig) WithRoot(fn func(Transform)) {
	if !s.Loaded() {
		return
	}
	if root := s.rig.Root(); root != nil {
		fn(root)
	}
}

// SetExpression forwards the weight and swallows any failure. The first
// miss per name is logged.
func (s *SafeRig) SetExpression(name string, weight float64) {
	if !s.Loaded() {
		return
	}
	if err := s.rig.SetExpression(name, weight); err != nil {
		s.mu.Lock()
		s.misses[name]++
		first := s.misses[name] == 1
		s.mu.Unlock()
		if first {
			s.logger.Debug().Str("expression", name).Err(err).Msg("expression not supported by model")
		}
	}
}

// Misses reports how many writes failed per expression name.
func (s *SafeRig) Misses() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.misses))
	for k, v := range s.misses {
		out[k] = v
	}
	return out
}

func (s *SafeRig) Dispose() {
	if s.Loaded() {
		s.rig.Dispose()
	}
}
