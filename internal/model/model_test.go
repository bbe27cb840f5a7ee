package model

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
)

const vrm1Doc = `{
  "asset": {"version": "2.0"},
  "nodes": [
    {"name": "J_Hips", "translation": [0, 0.9, 0]},
    {"name": "J_Head", "rotation": [0.24740396, 0, 0, 0.96891242]},
    {"name": "J_LeftUpperArm"}
  ],
  "extensionsUsed": ["VRMC_vrm"],
  "extensions": {
    "VRMC_vrm": {
      "specVersion": "1.0",
      "humanoid": {"humanBones": {
        "hips": {"node": 0},
        "head": {"node": 1},
        "leftUpperArm": {"node": 2}
      }},
      "expressions": {
        "preset": {"happy": {}, "aa": {}, "blink": {}},
        "custom": {"pout": {}}
      }
    }
  }
}`

const vrm0Doc = `{
  "asset": {"version": "2.0"},
  "nodes": [{"name": "Hips"}, {"name": "Spine"}],
  "extensionsUsed": ["VRM"],
  "extensions": {
    "VRM": {
      "humanoid": {"humanBones": [
        {"bone": "hips", "node": 0},
        {"bone": "spine", "node": 1}
      ]},
      "blendShapeMaster": {"blendShapeGroups": [
        {"name": "Joy", "presetName": "joy"},
        {"name": "A", "presetName": "a"},
        {"name": "Blink_L", "presetName": "blink_l"},
        {"name": "Sorrow", "presetName": "sorrow"},
        {"name": "Blush", "presetName": "unknown"}
      ]}
    }
  }
}`

func TestDecodeVRM1(t *testing.T) {
	m, err := Decode(strings.NewReader(vrm1Doc), "mem")
	require.NoError(t, err)

	assert.Equal(t, "1.0", m.Version)
	assert.Equal(t, 3, m.NodeCount())
	assert.Equal(t, []avatar3d.BoneName{avatar3d.BoneHips, avatar3d.BoneHead, avatar3d.BoneLeftUpperArm}, m.Bones())
	assert.Equal(t, []string{"aa", "blink", "happy", "pout"}, m.Expressions())

	hips, ok := m.Bone(avatar3d.BoneHips)
	require.True(t, ok)
	assert.InDelta(t, 0.9, hips.Position().Y(), 1e-9)

	head, ok := m.Bone(avatar3d.BoneHead)
	require.True(t, ok)
	assert.InDelta(t, 0.5, head.Rotation().X(), 1e-6)
	assert.InDelta(t, 0, head.Rotation().Y(), 1e-6)

	_, ok = m.Bone(avatar3d.BoneChest)
	assert.False(t, ok)
}

func TestDecodeVRM0MapsPresets(t *testing.T) {
	m, err := Decode(strings.NewReader(vrm0Doc), "mem")
	require.NoError(t, err)

	assert.Equal(t, "0.x", m.Version)
	assert.Equal(t, []string{"Blush", "aa", "blinkLeft", "happy", "sad"}, m.Expressions())
	assert.True(t, m.HasExpression("blinkLeft"))
	assert.False(t, m.HasExpression("blinkRight"))
}

func TestDecodeRejectsPlainGLTF(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"asset":{"version":"2.0"},"nodes":[{"name":"a"}]}`), "plain")
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestDecodeRejectsBadBoneIndex(t *testing.T) {
	doc := strings.Replace(vrm1Doc, `"leftUpperArm": {"node": 2}`, `"leftUpperArm": {"node": 9}`, 1)
	_, err := Decode(strings.NewReader(doc), "bad")
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestSetExpression(t *testing.T) {
	m, err := Decode(strings.NewReader(vrm1Doc), "mem")
	require.NoError(t, err)

	require.NoError(t, m.SetExpression("happy", 0.7))
	assert.InDelta(t, 0.7, m.Weight("happy"), 1e-9)

	err = m.SetExpression("wave", 1)
	assert.ErrorIs(t, err, ErrUnknownExpression)
}

func TestDispose(t *testing.T) {
	m, err := Decode(strings.NewReader(vrm1Doc), "mem")
	require.NoError(t, err)

	m.Dispose()
	assert.True(t, m.Disposed())
	assert.Nil(t, m.Root())
	_, ok := m.Bone(avatar3d.BoneHips)
	assert.False(t, ok)
	assert.True(t, errors.Is(m.SetExpression("happy", 1), ErrDisposed))
}

func TestLoaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.gltf")
	require.NoError(t, os.WriteFile(path, []byte(vrm0Doc), 0o644))

	l := NewLoader(nil, zerolog.Nop())
	rig, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	_, ok := rig.Bone(avatar3d.BoneSpine)
	assert.True(t, ok)
}

func TestLoaderHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/avatar.vrm" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(vrm1Doc))
	}))
	defer srv.Close()

	l := NewLoader(srv.Client(), zerolog.Nop())

	m, err := l.LoadModel(context.Background(), srv.URL+"/avatar.vrm")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/avatar.vrm", m.Source)

	_, err = l.LoadModel(context.Background(), srv.URL+"/missing.vrm")
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestLoaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(nil, zerolog.Nop()).Load(ctx, "whatever.vrm")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModelDrivesAvatar(t *testing.T) {
	m, err := Decode(strings.NewReader(vrm1Doc), "mem")
	require.NoError(t, err)

	a := avatar3d.NewAvatar(avatar3d.DefaultOptions(), zerolog.Nop())
	a.AttachModel(m)
	a.SetEmotion(avatar3d.EmotionHappy)
	for i := 0; i < 60; i++ {
		a.Advance(1.0 / 60)
	}
	assert.Greater(t, m.Weight("happy"), 0.0)
}
