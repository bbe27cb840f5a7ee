// Package model loads VRM humanoid models (glTF 2.0 with the VRM 0.x or
// VRMC_vrm 1.0 extension) into rigs the animation core can drive.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
)

var (
	ErrInvalidModel      = errors.New("invalid VRM model")
	ErrUnknownExpression = errors.New("expression not in model")
	ErrDisposed          = errors.New("model disposed")
)

// Joint is a mutable bone transform backed by a glTF node.
type Joint struct {
	Name     string
	Node     int
	rotation mgl64.Vec3
	position mgl64.Vec3
}

func (j *Joint) Rotation() mgl64.Vec3     { return j.rotation }
func (j *Joint) SetRotation(r mgl64.Vec3) { j.rotation = r }
func (j *Joint) Position() mgl64.Vec3     { return j.position }
func (j *Joint) SetPosition(p mgl64.Vec3) { j.position = p }

// Model is a loaded humanoid. It is not safe for concurrent use; the
// avatar that owns it serializes access.
type Model struct {
	Source  string
	Version string // "0.x" or "1.0"

	doc         *gltf.Document
	bones       map[avatar3d.BoneName]*Joint
	root        *Joint
	expressions map[string]float64
	disposed    bool
}

func (m *Model) Bone(name avatar3d.BoneName) (avatar3d.Transform, bool) {
	j, ok := m.bones[name]
	if !ok || m.disposed {
		return nil, false
	}
	return j, true
}

func (m *Model) Root() avatar3d.Transform {
	if m.disposed {
		return nil
	}
	return m.root
}

func (m *Model) SetExpression(name string, weight float64) error {
	if m.disposed {
		return ErrDisposed
	}
	if _, ok := m.expressions[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExpression, name)
	}
	m.expressions[name] = weight
	return nil
}

func (m *Model) HasExpression(name string) bool {
	_, ok := m.expressions[name]
	return ok
}

// Weight returns the last weight written to an expression.
func (m *Model) Weight(name string) float64 {
	return m.expressions[name]
}

// Expressions lists the model's expression names, sorted.
func (m *Model) Expressions() []string {
	out := make([]string, 0, len(m.expressions))
	for name := range m.expressions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Bones lists the humanoid bones the model maps, in tracking order.
func (m *Model) Bones() []avatar3d.BoneName {
	out := make([]avatar3d.BoneName, 0, len(m.bones))
	for _, name := range avatar3d.TrackedBones {
		if _, ok := m.bones[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// NodeCount is the number of glTF nodes in the source document.
func (m *Model) NodeCount() int {
	if m.doc == nil {
		return 0
	}
	return len(m.doc.Nodes)
}

func (m *Model) Disposed() bool { return m.disposed }

// Dispose drops the document and every handle. Later bone lookups miss
// and expression writes fail.
func (m *Model) Dispose() {
	m.disposed = true
	m.doc = nil
	m.bones = map[avatar3d.BoneName]*Joint{}
	m.expressions = map[string]float64{}
}

// fromDocument builds a Model from a decoded glTF document.
func fromDocument(doc *gltf.Document, source string) (*Model, error) {
	h, err := readHumanoid(doc)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Source:      source,
		Version:     h.version,
		doc:         doc,
		bones:       make(map[avatar3d.BoneName]*Joint, len(h.bones)),
		root:        &Joint{Name: "scene", Node: -1},
		expressions: make(map[string]float64, len(h.expressions)),
	}
	for bone, idx := range h.bones {
		if idx < 0 || idx >= len(doc.Nodes) || doc.Nodes[idx] == nil {
			return nil, fmt.Errorf("%w: bone %s points at missing node %d", ErrInvalidModel, bone, idx)
		}
		n := doc.Nodes[idx]
		m.bones[bone] = &Joint{
			Name:     n.Name,
			Node:     idx,
			rotation: quatToEuler(n.Rotation),
			position: mgl64.Vec3{n.Translation[0], n.Translation[1], n.Translation[2]},
		}
	}
	for _, name := range h.expressions {
		m.expressions[name] = 0
	}
	return m, nil
}

// quatToEuler converts a glTF (x, y, z, w) quaternion to XYZ Euler angles.
// A zero quaternion reads as identity.
func quatToEuler(r [4]float64) mgl64.Vec3 {
	q := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}
	if q.Len() == 0 {
		return mgl64.Vec3{}
	}
	mat := q.Normalize().Mat4()

	m11, m12, m13 := mat.At(0, 0), mat.At(0, 1), mat.At(0, 2)
	m22, m23 := mat.At(1, 1), mat.At(1, 2)
	m32, m33 := mat.At(2, 1), mat.At(2, 2)

	y := math.Asin(math.Max(-1, math.Min(1, m13)))
	if math.Abs(m13) < 0.9999999 {
		return mgl64.Vec3{math.Atan2(-m23, m33), y, math.Atan2(-m12, m11)}
	}
	return mgl64.Vec3{math.Atan2(m32, m22), y, 0}
}
