package avatar3d

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	mouthOpenShare = 0.3 // of each vowel slice; the rest is a closed gap
)

// VisemeEvent switches the mouth to Viseme at Time milliseconds from the
// start of the utterance.
type VisemeEvent struct {
	Viseme Viseme  `json:"viseme"`
	Time   float64 `json:"time"`
}

// VisemeTimeline is a finite, ordered lip-sync script for one utterance.
type VisemeTimeline struct {
	Events   []VisemeEvent `json:"events"`
	Duration float64       `json:"duration"` // milliseconds
}

var vowelVisemes = map[rune]Viseme{
	'a': VisemeAA,
	'e': VisemeEE,
	'i': VisemeIH,
	'o': VisemeOH,
	'u': VisemeOU,
}

// GenerateTimeline splits text into words of equal length in time, and
// each word into equal vowel slices. A vowel slice opens the mouth for
// its first 30% then closes. Words without vowels read as a single "a".
// Text with no letters gives an empty timeline.
func GenerateTimeline(text string, durationMs float64) VisemeTimeline {
	words := timelineWords(text)
	if len(words) == 0 {
		return VisemeTimeline{}
	}
	if durationMs <= 0 {
		return VisemeTimeline{Events: []VisemeEvent{{Viseme: VisemeSil}}}
	}

	events := make([]VisemeEvent, 0, len(words)*4+1)
	perWord := durationMs / float64(len(words))
	t := 0.0

	for _, w := range words {
		vowels := make([]Viseme, 0, len(w))
		for _, r := range w {
			if v, ok := vowelVisemes[r]; ok {
				vowels = append(vowels, v)
			}
		}
		if len(vowels) == 0 {
			vowels = append(vowels, VisemeAA)
		}

		perVowel := perWord / float64(len(vowels))
		for _, v := range vowels {
			events = append(events, VisemeEvent{Viseme: v, Time: t})
			t += perVowel * mouthOpenShare
			events = append(events, VisemeEvent{Viseme: VisemeSil, Time: t})
			t += perVowel * (1 - mouthOpenShare)
		}
	}

	events = append(events, VisemeEvent{Viseme: VisemeSil, Time: durationMs})
	return VisemeTimeline{Events: events, Duration: durationMs}
}

// timelineWords lowercases text, drops everything but ASCII letters and
// whitespace, and splits on whitespace.
func timelineWords(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// VisemeAt returns the last event at or before elapsedMs, or silence
// before the first event.
func (t VisemeTimeline) VisemeAt(elapsedMs float64) Viseme {
	current := VisemeSil
	for _, e := range t.Events {
		if e.Time > elapsedMs {
			break
		}
		current = e.Viseme
	}
	return current
}

// End is the timestamp of the final event.
func (t VisemeTimeline) End() float64 {
	if len(t.Events) == 0 {
		return 0
	}
	return t.Events[len(t.Events)-1].Time
}

// LipSyncDriver plays one timeline at a time against frame time.
type LipSyncDriver struct {
	timeline  VisemeTimeline
	utterance string
	elapsedMs float64
	playing   bool
	current   Viseme

	onViseme func(utterance string, v Viseme)
	onDone   func(utterance string)
}

func NewLipSyncDriver() *LipSyncDriver {
	return &LipSyncDriver{current: VisemeSil}
}

// OnViseme registers a callback fired whenever the active viseme changes.
func (d *LipSyncDriver) OnViseme(fn func(utterance string, v Viseme)) {
	d.onViseme = fn
}

// OnDone registers a callback fired when playback stops for any reason.
func (d *LipSyncDriver) OnDone(fn func(utterance string)) {
	d.onDone = fn
}

// Start discards any current timeline and plays a fresh one from zero.
// It returns the new utterance ID.
func (d *LipSyncDriver) Start(text string, durationMs float64) string {
	if d.playing {
		d.Stop()
	}
	d.timeline = GenerateTimeline(text, durationMs)
	d.utterance = uuid.NewString()
	d.elapsedMs = 0
	d.current = VisemeSil
	d.playing = len(d.timeline.Events) > 0
	return d.utterance
}

// Stop forces silence immediately.
func (d *LipSyncDriver) Stop() {
	wasPlaying := d.playing
	d.playing = false
	d.setViseme(VisemeSil)
	if wasPlaying && d.onDone != nil {
		d.onDone(d.utterance)
	}
}

// Advance moves the playhead by dt seconds and returns the mouth target.
// Playback stops on its own once the final event is reached.
func (d *LipSyncDriver) Advance(dt float64) MouthWeights {
	if !d.playing {
		return MouthWeights{}
	}
	d.elapsedMs += dt * 1000
	d.setViseme(d.timeline.VisemeAt(d.elapsedMs))

	if d.elapsedMs >= d.timeline.End() {
		d.Stop()
		return MouthWeights{}
	}
	return WeightsFor(d.current)
}

func (d *LipSyncDriver) setViseme(v Viseme) {
	if v == d.current {
		return
	}
	d.current = v
	if d.onViseme != nil {
		d.onViseme(d.utterance, v)
	}
}

func (d *LipSyncDriver) Playing() bool            { return d.playing }
func (d *LipSyncDriver) Utterance() string        { return d.utterance }
func (d *LipSyncDriver) Elapsed() float64         { return d.elapsedMs }
func (d *LipSyncDriver) Current() Viseme          { return d.current }
func (d *LipSyncDriver) Timeline() VisemeTimeline { return d.timeline }
