package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
)

const (
	extVRM0 = "VRM"
	extVRM1 = "VRMC_vrm"
)

type humanoid struct {
	version     string
	bones       map[avatar3d.BoneName]int
	expressions []string
}

type vrm0Extension struct {
	Humanoid struct {
		HumanBones []struct {
			Bone string `json:"bone"`
			Node int    `json:"node"`
		} `json:"humanBones"`
	} `json:"humanoid"`
	BlendShapeMaster struct {
		BlendShapeGroups []struct {
			Name       string `json:"name"`
			PresetName string `json:"presetName"`
		} `json:"blendShapeGroups"`
	} `json:"blendShapeMaster"`
}

type vrm1Extension struct {
	Humanoid struct {
		HumanBones map[string]struct {
			Node int `json:"node"`
		} `json:"humanBones"`
	} `json:"humanoid"`
	Expressions struct {
		Preset map[string]json.RawMessage `json:"preset"`
		Custom map[string]json.RawMessage `json:"custom"`
	} `json:"expressions"`
}

// vrm0Presets renames VRM 0.x blend shape presets to the 1.0 expression
// names the animation core writes.
var vrm0Presets = map[string]string{
	"neutral":   "neutral",
	"a":         "aa",
	"i":         "ih",
	"u":         "ou",
	"e":         "ee",
	"o":         "oh",
	"blink":     "blink",
	"blink_l":   "blinkLeft",
	"blink_r":   "blinkRight",
	"joy":       "happy",
	"angry":     "angry",
	"sorrow":    "sad",
	"fun":       "relaxed",
	"lookup":    "lookUp",
	"lookdown":  "lookDown",
	"lookleft":  "lookLeft",
	"lookright": "lookRight",
}

func readHumanoid(doc *gltf.Document) (*humanoid, error) {
	if raw, ok := doc.Extensions[extVRM1]; ok {
		var ext vrm1Extension
		if err := decodeExtension(raw, &ext); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidModel, extVRM1, err)
		}
		return fromVRM1(ext)
	}
	if raw, ok := doc.Extensions[extVRM0]; ok {
		var ext vrm0Extension
		if err := decodeExtension(raw, &ext); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidModel, extVRM0, err)
		}
		return fromVRM0(ext)
	}
	return nil, fmt.Errorf("%w: no VRM extension", ErrInvalidModel)
}

// decodeExtension handles both raw JSON (unregistered extensions) and
// already decoded values.
func decodeExtension(raw any, into any) error {
	var data []byte
	switch v := raw.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	return json.Unmarshal(data, into)
}

func fromVRM0(ext vrm0Extension) (*humanoid, error) {
	h := &humanoid{version: "0.x", bones: make(map[avatar3d.BoneName]int)}
	for _, b := range ext.Humanoid.HumanBones {
		h.bones[avatar3d.BoneName(b.Bone)] = b.Node
	}
	seen := make(map[string]bool)
	for _, g := range ext.BlendShapeMaster.BlendShapeGroups {
		name, ok := vrm0Presets[strings.ToLower(g.PresetName)]
		if !ok {
			name = g.Name
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		h.expressions = append(h.expressions, name)
	}
	return h, h.validate()
}

func fromVRM1(ext vrm1Extension) (*humanoid, error) {
	h := &humanoid{version: "1.0", bones: make(map[avatar3d.BoneName]int)}
	for bone, ref := range ext.Humanoid.HumanBones {
		h.bones[avatar3d.BoneName(bone)] = ref.Node
	}
	for name := range ext.Expressions.Preset {
		h.expressions = append(h.expressions, name)
	}
	for name := range ext.Expressions.Custom {
		h.expressions = append(h.expressions, name)
	}
	return h, h.validate()
}

func (h *humanoid) validate() error {
	if _, ok := h.bones[avatar3d.BoneHips]; !ok {
		return fmt.Errorf("%w: humanoid has no hips bone", ErrInvalidModel)
	}
	return nil
}
