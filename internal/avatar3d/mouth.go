package avatar3d

import (
	"fmt"
	"sort"
)

type Viseme string

const (
	VisemeAA  Viseme = "aa"
	VisemeEE  Viseme = "ee"
	VisemeIH  Viseme = "ih"
	VisemeOH  Viseme = "oh"
	VisemeOU  Viseme = "ou"
	VisemeSil Viseme = "sil"
)

// MouthShapes are the five mouth channels in canonical order.
var MouthShapes = [...]Viseme{VisemeAA, VisemeEE, VisemeIH, VisemeOH, VisemeOU}

const (
	DefaultMouthSmoothing = 15
	DefaultMouthRelease   = 20

	speakingThreshold = 0.1
	activeMouthShapes = 2
)

// MouthWeights holds one weight per mouth shape, indexed like MouthShapes.
type MouthWeights [len(MouthShapes)]float64

func mouthIndex(v Viseme) int {
	for i, s := range MouthShapes {
		if s == v {
			return i
		}
	}
	return -1
}

func (m *MouthWeights) Set(v Viseme, w float64) {
	if i := mouthIndex(v); i >= 0 {
		m[i] = clamp(w, 0, 1)
	}
}

func (m MouthWeights) Get(v Viseme) float64 {
	if i := mouthIndex(v); i >= 0 {
		return m[i]
	}
	return 0
}

// Speaking reports whether any mouth shape is open past the talk threshold.
func (m MouthWeights) Speaking() bool {
	for _, w := range m {
		if w > speakingThreshold {
			return true
		}
	}
	return false
}

func (m MouthWeights) Map() map[Viseme]float64 {
	out := make(map[Viseme]float64, len(m))
	for i, s := range MouthShapes {
		out[s] = m[i]
	}
	return out
}

// MouthWeightsFromMap builds weights from a name keyed record, ignoring
// unknown keys.
func MouthWeightsFromMap(in map[string]float64) MouthWeights {
	var m MouthWeights
	for k, v := range in {
		m.Set(Viseme(k), v)
	}
	return m
}

// visemeShapes is how strongly each viseme opens each mouth channel.
var visemeShapes = map[Viseme]MouthWeights{
	VisemeAA:  {0.8, 0, 0, 0.2, 0},
	VisemeEE:  {0, 0.9, 0.1, 0, 0},
	VisemeIH:  {0, 0.3, 0.7, 0, 0},
	VisemeOH:  {0, 0, 0, 0.8, 0.2},
	VisemeOU:  {0, 0, 0, 0.1, 0.9},
	VisemeSil: {},
}

// WeightsFor returns the mouth shape for a viseme. Unknown visemes are silent.
func WeightsFor(v Viseme) MouthWeights {
	return visemeShapes[v]
}

func ParseViseme(s string) (Viseme, error) {
	v := Viseme(s)
	if _, ok := visemeShapes[v]; !ok {
		return VisemeSil, fmt.Errorf("unknown viseme %q", s)
	}
	return v, nil
}

// MouthSmoother eases raw mouth targets and keeps only the two strongest
// shapes open. The rest fall toward zero at the release rate, which reads
// as coarticulation rather than all five shapes mixing at once.
type MouthSmoother struct {
	current   MouthWeights
	active    []Viseme
	smoothing float64
	release   float64
}

func NewMouthSmoother(smoothing, release float64) *MouthSmoother {
	if smoothing <= 0 {
		smoothing = DefaultMouthSmoothing
	}
	if release <= 0 {
		release = DefaultMouthRelease
	}
	return &MouthSmoother{smoothing: smoothing, release: release}
}

func (s *MouthSmoother) Advance(dt float64, target MouthWeights) MouthWeights {
	for i := range s.current {
		s.current[i] = Damp(s.current[i], target[i], s.smoothing, dt)
	}

	ranked := rankShapes(s.current)
	s.active = s.active[:0]
	var open [len(MouthShapes)]bool
	for _, i := range ranked[:activeMouthShapes] {
		open[i] = true
		s.active = append(s.active, MouthShapes[i])
	}
	for i := range s.current {
		if !open[i] {
			s.current[i] = Damp(s.current[i], 0, s.release, dt)
		}
	}
	return s.current
}

// Active returns the shapes kept open on the last frame, strongest first.
func (s *MouthSmoother) Active() []Viseme {
	return append([]Viseme(nil), s.active...)
}

// rankShapes orders shape indices by weight, ties in canonical order.
func rankShapes(m MouthWeights) []int {
	order := make([]int, len(m))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m[order[a]] > m[order[b]]
	})
	return order
}

func (s *MouthSmoother) Current() MouthWeights {
	return s.current
}

func (s *MouthSmoother) Reset() {
	s.current = MouthWeights{}
	s.active = nil
}
