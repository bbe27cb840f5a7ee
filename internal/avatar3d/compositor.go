package avatar3d

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultYOffset = -0.75

	sceneBaseHeight = 0.3
	gestureEpsilon  = 1e-3
	waveEpsilon     = 0.01
	waveRaise       = 1.05 // lifts the A-pose arm to roughly shoulder height
)

// boneDamping is the response rate per bone. Heavier parts of the body
// follow their targets more slowly.
var boneDamping = map[BoneName]float64{
	BoneSpine:         10,
	BoneHips:          10,
	BoneChest:         8,
	BoneHead:          10,
	BoneLeftUpperArm:  12,
	BoneRightUpperArm: 12,
	BoneLeftLowerArm:  14,
	BoneRightLowerArm: 14,
	BoneLeftUpperLeg:  10,
	BoneRightUpperLeg: 10,
	BoneLeftLowerLeg:  12,
	BoneRightLowerLeg: 12,
}

// EulerTarget is a per-axis rotation target. Axes left unset keep
// whatever rotation the bone already has.
type EulerTarget struct {
	Value mgl64.Vec3
	Set   [3]bool
}

func (t EulerTarget) X(v float64) EulerTarget { t.Value[0], t.Set[0] = v, true; return t }
func (t EulerTarget) Y(v float64) EulerTarget { t.Value[1], t.Set[1] = v, true; return t }
func (t EulerTarget) Z(v float64) EulerTarget { t.Value[2], t.Set[2] = v, true; return t }

// BodyPose is the composed target for one frame before damping.
type BodyPose struct {
	Rotations map[BoneName]EulerTarget
	// Positions are written directly, they carry small secondary motion.
	Positions map[BoneName]mgl64.Vec3

	RootHeight float64
	RootYaw    float64
}

// PoseCompositor sums idle and gesture offsets onto the base pose and
// eases every bone toward the sum.
type PoseCompositor struct {
	store   *PoseStore
	yOffset float64
}

func NewPoseCompositor(store *PoseStore) *PoseCompositor {
	return &PoseCompositor{store: store, yOffset: DefaultYOffset}
}

func (c *PoseCompositor) SetYOffset(y float64) { c.yOffset = y }
func (c *PoseCompositor) YOffset() float64     { return c.yOffset }

// Compose computes the frame's targets. It does not touch the rig.
func (c *PoseCompositor) Compose(idle IdleFrame, g GestureContribution) BodyPose {
	base := c.store.Base
	pose := BodyPose{
		Rotations: make(map[BoneName]EulerTarget, len(TrackedBones)),
		Positions: make(map[BoneName]mgl64.Vec3, 2),
	}

	ground := g.KneeBend*0.12 + idle.ChestBounce*0.5
	pose.RootHeight = sceneBaseHeight + c.yOffset + idle.HopHeight + g.JumpHeight - ground
	pose.RootYaw = idle.Yaw + g.SpinAngle

	spine := base(BoneSpine)
	pose.Positions[BoneSpine] = spine.Position.Add(mgl64.Vec3{0, idle.BreathSpineY, 0})
	pose.Rotations[BoneSpine] = EulerTarget{}.X(spine.Rotation.X() + g.Bow)

	hips := base(BoneHips)
	pose.Rotations[BoneHips] = EulerTarget{}.
		Z(hips.Rotation.Z() + idle.SwayZ + g.Dance*0.18).
		X(hips.Rotation.X() + idle.SwayX + g.JumpHeight*0.15 + g.KneeBend*0.2)
	vert := idle.ChestBounce + math.Abs(g.Dance)*0.04 + math.Abs(g.SpinJiggle)*0.15
	lat := g.Dance*0.06 + idle.SwayX*0.3 + g.KneeBend*0.02 + g.SpinJiggle
	pose.Positions[BoneHips] = mgl64.Vec3{hips.Position.X() + lat, hips.Position.Y() + vert, hips.Position.Z()}

	chest := base(BoneChest)
	pose.Rotations[BoneChest] = EulerTarget{}.
		X(chest.Rotation.X() + idle.BreathChest + g.Dance*0.05 - g.JumpHeight*0.1).
		Z(chest.Rotation.Z() - idle.SwayX*0.4)

	head := base(BoneHead)
	flip := math.Max(0, g.HairFlip)
	pose.Rotations[BoneHead] = EulerTarget{}.
		X(head.Rotation.X() + idle.HeadX).
		Y(head.Rotation.Y() + idle.HeadY + flip*0.2).
		Z(head.Rotation.Z() + flip*0.3)

	c.composeArms(&pose, idle, g)
	c.composeLegs(&pose, idle, g)
	return pose
}

func (c *PoseCompositor) composeArms(pose *BodyPose, idle IdleFrame, g GestureContribution) {
	base := c.store.Base

	lu := base(BoneLeftUpperArm).Rotation
	pose.Rotations[BoneLeftUpperArm] = EulerTarget{}.
		Z(lu.Z() + idle.ArmWave + g.Dance*0.2).
		X(lu.X() + idle.ArmBounce)

	ru := base(BoneRightUpperArm).Rotation
	tz, tx, ty := ru.Z()-idle.ArmWave, ru.X()+idle.ArmBounce, ru.Y()
	switch {
	case math.Abs(g.ArmWave) > waveEpsilon:
		tz = ru.Z() - waveRaise + g.ArmWave*0.25
		tx = ru.X() - 0.9
		ty = ru.Y() + 0.6
	case g.BlowKiss > gestureEpsilon:
		dz, dx, dy := blowKissUpperArm(g.BlowKiss)
		tz, tx, ty = ru.Z()+dz, ru.X()+dx, ru.Y()+dy
	case g.HairFlip > gestureEpsilon:
		tz = ru.Z() - math.Pi*0.4*g.HairFlip
		tx = ru.X() + 0.3*g.HairFlip
		ty = ru.Y() - 0.4*g.HairFlip
	case math.Abs(g.Dance) > gestureEpsilon:
		tz = ru.Z() - idle.ArmWave + g.Dance*0.2
		ty = ru.Y() + g.Dance*0.1
	}
	pose.Rotations[BoneRightUpperArm] = EulerTarget{}.Z(tz).X(tx).Y(ty)

	ll := base(BoneLeftLowerArm).Rotation
	pose.Rotations[BoneLeftLowerArm] = EulerTarget{}.Z(ll.Z() + idle.LowerArmWave + g.Dance*0.1)

	rl := base(BoneRightLowerArm).Rotation
	var target EulerTarget
	switch {
	case math.Abs(g.ArmWave) > waveEpsilon:
		target = EulerTarget{}.Z(rl.Z() - 1.4).X(rl.X() + g.ArmWave*0.4).Y(rl.Y() - 0.2)
	case g.BlowKiss > gestureEpsilon:
		dz, dx, dy := blowKissLowerArm(g.BlowKiss)
		target = EulerTarget{}.Z(rl.Z() + dz).X(rl.X() + dx).Y(rl.Y() + dy)
	case g.HairFlip > gestureEpsilon:
		target = EulerTarget{}.Z(rl.Z() - 2.2*g.HairFlip).X(rl.X() - 0.4*g.HairFlip)
	default:
		target = EulerTarget{}.Z(rl.Z() - idle.LowerArmWave + g.Dance*0.1)
	}
	pose.Rotations[BoneRightLowerArm] = target
}

// blowKissUpperArm returns z, x, y offsets: raise the hand to the mouth,
// hold, then sweep it outward.
func blowKissUpperArm(k float64) (dz, dx, dy float64) {
	switch {
	case k < 0.4:
		p := k / 0.4
		return -p * 0.8, -0.3 - p*1.2, 0.5 * p
	case k < 0.6:
		return -0.8, -1.5, 0.5
	default:
		p := (k - 0.6) / 0.4
		return -0.8 + p*0.5, -1.5 + p, 0.5 - p*0.3
	}
}

func blowKissLowerArm(k float64) (dz, dx, dy float64) {
	switch {
	case k < 0.4:
		p := k / 0.4
		return -2.0 * p, 0.2 * p, -0.3 * p
	case k < 0.6:
		return -2.0, 0.2, -0.3
	default:
		p := (k - 0.6) / 0.4
		return -2.0 + p*1.5, 0.2 - p*0.2, -0.3 + p*0.3
	}
}

func (c *PoseCompositor) composeLegs(pose *BodyPose, idle IdleFrame, g GestureContribution) {
	base := c.store.Base
	knee := idle.KneeBend + g.KneeBend*1.2

	pose.Rotations[BoneLeftUpperLeg] = EulerTarget{}.X(base(BoneLeftUpperLeg).Rotation.X() + idle.LegKick + g.KneeBend*0.7)
	pose.Rotations[BoneRightUpperLeg] = EulerTarget{}.X(base(BoneRightUpperLeg).Rotation.X() - idle.LegKick + g.KneeBend*0.7)
	pose.Rotations[BoneLeftLowerLeg] = EulerTarget{}.X(base(BoneLeftLowerLeg).Rotation.X() + knee)
	pose.Rotations[BoneRightLowerLeg] = EulerTarget{}.X(base(BoneRightLowerLeg).Rotation.X() + knee)
}

// Apply writes a composed pose: rotations are damped per bone, positions
// and the root transform are set directly.
func (c *PoseCompositor) Apply(rig *SafeRig, pose BodyPose, dt float64) {
	for _, name := range TrackedBones {
		target, ok := pose.Rotations[name]
		if !ok {
			continue
		}
		lambda := boneDamping[name]
		rig.WithBone(name, func(t Transform) {
			t.SetRotation(dampEuler(t.Rotation(), target, lambda, dt))
		})
	}
	for name, p := range pose.Positions {
		p := p
		rig.WithBone(name, func(t Transform) { t.SetPosition(p) })
	}
	rig.WithRoot(func(t Transform) {
		pos := t.Position()
		t.SetPosition(mgl64.Vec3{pos.X(), pose.RootHeight, pos.Z()})
		rot := t.Rotation()
		t.SetRotation(mgl64.Vec3{rot.X(), pose.RootYaw, rot.Z()})
	})
}

func dampEuler(current mgl64.Vec3, target EulerTarget, lambda, dt float64) mgl64.Vec3 {
	out := current
	for i := 0; i < 3; i++ {
		if target.Set[i] {
			out[i] = DampAngle(current[i], target.Value[i], lambda, dt)
		}
	}
	return out
}
