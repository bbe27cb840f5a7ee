package avatar3d

import (
	"context"
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// ModelLoader loads a humanoid model from a path or URL.
type ModelLoader interface {
	Load(ctx context.Context, url string) (Rig, error)
}

// expressionLister is implemented by rigs that can report their
// expression table up front.
type expressionLister interface {
	HasExpression(name string) bool
}

// Options tunes the animation layers. Zero fields fall back to defaults.
type Options struct {
	Affection         float64
	YOffset           float64
	Seed              int64
	ShortGestureSpeed float64
	LongGestureSpeed  float64
	GestureSmoothing  float64
	EmotionFadeRate   float64
	ExcitementRate    float64
	MouthSmoothing    float64
	MouthRelease      float64
	HeadNoise         float64
}

func DefaultOptions() Options {
	return Options{
		YOffset:           DefaultYOffset,
		Seed:              1,
		ShortGestureSpeed: DefaultShortGestureSpeed,
		LongGestureSpeed:  DefaultLongGestureSpeed,
		GestureSmoothing:  DefaultGestureSmoothing,
		EmotionFadeRate:   3,
		ExcitementRate:    DefaultExcitementRate,
		MouthSmoothing:    DefaultMouthSmoothing,
		MouthRelease:      DefaultMouthRelease,
		HeadNoise:         0.015,
	}
}

// Hooks are invoked after the frame (or input call) that caused them,
// outside the avatar's lock.
type Hooks struct {
	OnGestureStart    func(GestureKind)
	OnGestureComplete func(GestureKind)
	OnGestureDropped  func(GestureKind)
	OnEmotionChanged  func(Emotion)
	OnModelLoaded     func()
	OnError           func(error)
	OnViseme          func(utterance string, v Viseme)
	OnSpeechDone      func(utterance string)
}

type inputs struct {
	emotion   Emotion
	affection float64
	mouth     MouthWeights
	pending   GestureKind
}

// Avatar owns a loaded rig and every animation layer. Input setters may
// be called from any goroutine; Advance runs one frame and is the only
// place animation state moves.
type Avatar struct {
	logger zerolog.Logger

	mu      sync.Mutex
	in      inputs
	hooks   Hooks
	queued  []func()
	frame   uint64
	current Snapshot

	rig        *SafeRig
	pose       *PoseStore
	gestures   *GestureMachine
	smoother   *GestureSmoother
	idle       *IdleMotion
	eyes       *EyeController
	emotions   *EmotionTracker
	mixer      *ExpressionMixer
	mouth      *MouthSmoother
	lipsync    *LipSyncDriver
	compositor *PoseCompositor
}

func NewAvatar(opts Options, logger zerolog.Logger) *Avatar {
	def := DefaultOptions()
	if opts.Seed == 0 {
		opts.Seed = def.Seed
	}

	a := &Avatar{
		logger:   logger.With().Str("component", "avatar").Logger(),
		in:       inputs{emotion: EmotionNeutral, affection: opts.Affection},
		rig:      NewSafeRig(nil, logger),
		pose:     NewPoseStore(),
		gestures: NewGestureMachine(),
		smoother: NewGestureSmoother(opts.GestureSmoothing),
		idle:     NewIdleMotion(opts.Seed),
		eyes:     NewEyeController(rand.New(rand.NewSource(opts.Seed))),
		emotions: NewEmotionTracker(opts.EmotionFadeRate),
		mixer:    NewExpressionMixer(nil),
		mouth:    NewMouthSmoother(opts.MouthSmoothing, opts.MouthRelease),
		lipsync:  NewLipSyncDriver(),
	}
	a.compositor = NewPoseCompositor(a.pose)
	a.compositor.SetYOffset(opts.YOffset)
	a.gestures.SetSpeeds(opts.ShortGestureSpeed, opts.LongGestureSpeed)
	a.idle.SetExcitementRate(opts.ExcitementRate)
	a.idle.SetNoiseAmplitude(opts.HeadNoise)

	a.lipsync.OnViseme(func(utterance string, v Viseme) {
		if fn := a.hooks.OnViseme; fn != nil {
			a.queue(func() { fn(utterance, v) })
		}
	})
	a.lipsync.OnDone(func(utterance string) {
		if fn := a.hooks.OnSpeechDone; fn != nil {
			a.queue(func() { fn(utterance) })
		}
	})
	return a
}

func (a *Avatar) SetHooks(h Hooks) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = h
}

// queue must be called with mu held.
func (a *Avatar) queue(fn func()) {
	a.queued = append(a.queued, fn)
}

// unlock releases mu and runs queued hooks.
func (a *Avatar) unlock() {
	pending := a.queued
	a.queued = nil
	a.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// LoadModel loads url and attaches it. On failure the error is reported
// through OnError and the current model (if any) stays in place.
func (a *Avatar) LoadModel(ctx context.Context, loader ModelLoader, url string) error {
	rig, err := loader.Load(ctx, url)
	if err != nil {
		a.ReportLoadError(err)
		return err
	}
	a.AttachModel(rig)
	return nil
}

// AttachModel makes rig the animated model. The previous rig is disposed
// and all animation state restarts against the new base pose.
func (a *Avatar) AttachModel(rig Rig) {
	a.mu.Lock()
	old := a.rig

	a.rig = NewSafeRig(rig, a.logger)
	if lister, ok := rig.(expressionLister); ok {
		a.mixer = NewExpressionMixer(lister.HasExpression)
	} else {
		a.mixer = NewExpressionMixer(nil)
	}

	ApplyAPose(rig)
	a.pose.Capture(rig)
	a.resetLayers()
	a.current = Snapshot{}

	a.logger.Info().Int("bones", a.pose.Len()).Msg("model attached")
	if fn := a.hooks.OnModelLoaded; fn != nil {
		a.queue(fn)
	}
	a.unlock()

	if old != nil && old.rig != rig {
		old.Dispose()
	}
}

// DetachModel disposes the current rig. Advance does nothing until a new
// model is attached.
func (a *Avatar) DetachModel() {
	a.mu.Lock()
	old := a.rig
	a.rig = NewSafeRig(nil, a.logger)
	a.pose.Clear()
	a.resetLayers()
	a.current = Snapshot{}
	a.unlock()
	old.Dispose()
}

func (a *Avatar) ReportLoadError(err error) {
	a.mu.Lock()
	a.logger.Error().Err(err).Msg("model load failed")
	if fn := a.hooks.OnError; fn != nil {
		a.queue(func() { fn(err) })
	}
	a.unlock()
}

// resetLayers must be called with mu held. A gesture cut short by the
// reset still reports completion, so every accepted request ends once.
func (a *Avatar) resetLayers() {
	cut, active := a.gestures.Active()
	if !active {
		cut = a.in.pending
	}
	if cut != "" {
		a.logger.Debug().Str("gesture", string(cut)).Msg("gesture ended by model change")
		if fn := a.hooks.OnGestureComplete; fn != nil {
			a.queue(func() { fn(cut) })
		}
	}

	a.gestures.Reset()
	a.smoother.Reset()
	a.idle.Reset()
	a.eyes.Reset()
	a.mouth.Reset()
	a.lipsync.Stop()
	a.in.pending = ""
}

func (a *Avatar) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rig.Loaded()
}

func (a *Avatar) SetEmotion(e Emotion) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.in.emotion = e
}

func (a *Avatar) Emotion() Emotion {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.in.emotion
}

// SetAffection sets the 0..100 affection score used to scale emotions.
func (a *Avatar) SetAffection(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.in.affection = clamp(v, 0, 100)
}

func (a *Avatar) SetYOffset(y float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.compositor.SetYOffset(y)
}

// SetMouthWeights supplies mouth targets from an external phoneme source.
// They are used whenever the built-in lip-sync driver is idle.
func (a *Avatar) SetMouthWeights(m MouthWeights) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.in.mouth = m
}

// RequestGesture queues g for the next frame. It returns false, and the
// request is dropped, when g is unknown, no model is attached, or a
// gesture is playing or already queued.
func (a *Avatar) RequestGesture(g GestureKind) bool {
	a.mu.Lock()
	_, active := a.gestures.Active()
	if active || a.in.pending != "" || !g.Known() || !a.rig.Loaded() {
		if fn := a.hooks.OnGestureDropped; fn != nil {
			a.queue(func() { fn(g) })
		}
		a.unlock()
		return false
	}
	a.in.pending = g
	a.unlock()
	return true
}

func (a *Avatar) ActiveGesture() (GestureKind, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gestures.Active()
}

func (a *Avatar) GestureProgress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gestures.Progress()
}

// Speak starts lip sync for text spoken over durationMs and returns the
// utterance ID. Any utterance already playing is cut off.
func (a *Avatar) Speak(text string, durationMs float64) string {
	a.mu.Lock()
	id := a.lipsync.Start(text, durationMs)
	a.logger.Debug().Str("utterance", id).Float64("duration_ms", durationMs).Msg("lip sync started")
	a.unlock()
	return id
}

// StopSpeaking silences the mouth immediately.
func (a *Avatar) StopSpeaking() {
	a.mu.Lock()
	a.lipsync.Stop()
	a.unlock()
}

func (a *Avatar) Speaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lipsync.Playing()
}

// Advance runs one frame of dt seconds.
func (a *Avatar) Advance(dt float64) {
	a.AdvanceFrame(dt, dt)
}

// AdvanceFrame runs one frame where animation moves by dt and lip sync by
// wall, the real time since the last frame. wall may exceed dt when the
// caller clamps long frame gaps; the mouth then stays in step with audio.
func (a *Avatar) AdvanceFrame(dt, wall float64) {
	if wall < dt {
		wall = dt
	}
	a.mu.Lock()
	if !a.rig.Loaded() || dt <= 0 {
		a.unlock()
		return
	}
	a.frame++

	if a.emotions.Advance(dt, a.in.emotion) {
		if fn, e := a.hooks.OnEmotionChanged, a.in.emotion; fn != nil {
			a.queue(func() { fn(e) })
		}
	}

	if g := a.in.pending; g != "" {
		a.in.pending = ""
		if a.gestures.Request(g) {
			a.logger.Debug().Str("gesture", string(g)).Msg("gesture started")
			if fn := a.hooks.OnGestureStart; fn != nil {
				a.queue(func() { fn(g) })
			}
		}
	}

	raw, finished, done := a.gestures.Advance(dt)
	g := a.smoother.Advance(dt, raw)

	idle := a.idle.Advance(dt, a.in.emotion.Energetic())
	body := a.compositor.Compose(idle, g)
	a.compositor.Apply(a.rig, body, dt)

	mouthTarget := a.in.mouth
	if a.lipsync.Playing() {
		mouthTarget = a.lipsync.Advance(wall)
	}
	mouth := a.mouth.Advance(dt, mouthTarget)
	speaking := mouthTarget.Speaking()

	winking := g.Override == OverrideWink && g.OverrideIntensity > 0
	eyes := a.eyes.Advance(dt, speaking, winking, idle.Excitement)

	weights := a.mixer.Resolve(FaceInputs{
		Emotion:    a.emotions.Current(),
		Transition: a.emotions.Transition(),
		Affection:  a.in.affection,
		Gesture:    g,
		Eyes:       eyes,
		Speaking:   speaking,
		TalkTime:   a.idle.Time(),
		Mouth:      mouth,
	})
	for _, name := range weights.Names() {
		a.rig.SetExpression(name, weights[name])
	}

	a.current = a.snapshot(body, weights, idle.Excitement, speaking)

	if done {
		a.logger.Debug().Str("gesture", string(finished)).Msg("gesture complete")
		if fn := a.hooks.OnGestureComplete; fn != nil {
			a.queue(func() { fn(finished) })
		}
	}
	a.unlock()
}

// BoneState is a bone's transform after a frame.
type BoneState struct {
	Rotation mgl64.Vec3 `json:"rotation"`
	Position mgl64.Vec3 `json:"position"`
}

// Snapshot is the renderer-facing result of the last frame.
type Snapshot struct {
	Frame           uint64                 `json:"frame"`
	Loaded          bool                   `json:"loaded"`
	Bones           map[BoneName]BoneState `json:"bones,omitempty"`
	RootHeight      float64                `json:"root_height"`
	RootYaw         float64                `json:"root_yaw"`
	Expressions     ExpressionWeights      `json:"expressions,omitempty"`
	Emotion         Emotion                `json:"emotion"`
	Transition      float64                `json:"transition"`
	Gesture         GestureKind            `json:"gesture,omitempty"`
	GestureProgress float64                `json:"gesture_progress"`
	Excitement      float64                `json:"excitement"`
	Speaking        bool                   `json:"speaking"`
	Viseme          Viseme                 `json:"viseme"`
}

func (a *Avatar) snapshot(body BodyPose, w ExpressionWeights, excitement float64, speaking bool) Snapshot {
	s := Snapshot{
		Frame:       a.frame,
		Loaded:      true,
		Bones:       make(map[BoneName]BoneState, len(TrackedBones)),
		RootHeight:  body.RootHeight,
		RootYaw:     body.RootYaw,
		Expressions: w,
		Emotion:     a.emotions.Current(),
		Transition:  a.emotions.Transition(),
		Excitement:  excitement,
		Speaking:    speaking,
		Viseme:      a.lipsync.Current(),
	}
	if g, ok := a.gestures.Active(); ok {
		s.Gesture = g
		s.GestureProgress = a.gestures.Progress()
	}
	for _, name := range TrackedBones {
		a.rig.WithBone(name, func(t Transform) {
			s.Bones[name] = BoneState{Rotation: t.Rotation(), Position: t.Position()}
		})
	}
	return s
}

// Snapshot returns the result of the most recent frame.
func (a *Avatar) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.current
	s.Expressions = s.Expressions.Clone()
	if s.Bones != nil {
		bones := make(map[BoneName]BoneState, len(s.Bones))
		for k, v := range s.Bones {
			bones[k] = v
		}
		s.Bones = bones
	}
	return s
}

// ExpressionMisses reports expression writes the current model rejected.
func (a *Avatar) ExpressionMisses() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rig.Misses()
}
