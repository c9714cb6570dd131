package anim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/creaturerig/pkg/math"
)

// Inputs are the per-frame kinematic values reported by the game layer.
type Inputs struct {
	Phase     float32 // locomotion phase (distance walked)
	Amplitude float32 // locomotion amplitude, 0..1
	Speed     float32 // movement speed
	LookYaw   float32 // radians, relative to the body
	LookPitch float32 // radians
	Flags     map[string]bool
}

// Flag reports whether the named state flag is set.
func (in Inputs) Flag(name string) bool {
	return in.Flags[name]
}

// Axes is a bitmask of vector components.
type Axes uint8

const (
	AxisX Axes = 1 << iota
	AxisY
	AxisZ

	AxesAll = AxisX | AxisY | AxisZ
)

// OverrideMode selects whether an override replaces or adds to the pose.
type OverrideMode uint8

const (
	OverrideSet OverrideMode = iota
	OverrideAdd
)

// Override is a direct per-frame pose adjustment on one bone.
// Only the components selected by Axes are touched.
type Override struct {
	Bone  int
	Kind  Kind
	Mode  OverrideMode
	Axes  Axes
	Value math.Vec3
}

// Apply writes the override into s. Negative or out-of-range bones are ignored.
func (o Override) Apply(s *Skeleton) {
	if o.Bone < 0 || o.Bone >= s.Len() {
		return
	}
	c := s.Pose(o.Bone).Component(o.Kind)
	for axis := 0; axis < 3; axis++ {
		if o.Axes&(1<<axis) == 0 {
			continue
		}
		v := o.Value.Get(axis)
		if o.Mode == OverrideAdd {
			v += c.Get(axis)
		}
		*c = c.Set(axis, v)
	}
}

// VisibilityOverride forces a bone's visibility flag for one frame.
type VisibilityOverride struct {
	Bone    int
	Visible bool
}

// Frame carries everything resolution needs for one rendered frame.
type Frame struct {
	Now        float32
	Inputs     Inputs
	Overrides  []Override
	Visibility []VisibilityOverride
}

// ProceduralFunc adjusts bone poses from live inputs after clips are applied.
type ProceduralFunc func(s *Skeleton, f *Frame)

// Layer is a named playback slot. Layers are applied in the order they were added.
type Layer struct {
	Name     string
	Playback *Playback
}

// Option configures an Animator.
type Option func(*Animator)

// WithLogger sets the logger used for asset diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(a *Animator) {
		if log != nil {
			a.log = log
		}
	}
}

// WithProcedural registers procedural overrides, run in the given order.
func WithProcedural(fns ...ProceduralFunc) Option {
	return func(a *Animator) {
		a.AddProcedural(fns...)
	}
}

type missingRef struct {
	clip string
	bone string
}

// Animator resolves one skeleton's pose each frame from its layers and overrides.
type Animator struct {
	skel       *Skeleton
	layers     []Layer
	byName     map[string]int
	procedural []ProceduralFunc
	bindings   map[*Clip][]int
	missing    map[missingRef]struct{}
	log        *zap.Logger
}

// NewAnimator creates an animator driving s.
func NewAnimator(s *Skeleton, opts ...Option) *Animator {
	a := &Animator{
		skel:     s,
		byName:   make(map[string]int),
		bindings: make(map[*Clip][]int),
		missing:  make(map[missingRef]struct{}),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Skeleton returns the driven skeleton.
func (a *Animator) Skeleton() *Skeleton {
	return a.skel
}

// AddLayer appends a new stopped playback of c under name.
// Later layers are applied after earlier ones.
func (a *Animator) AddLayer(name string, c *Clip) (*Playback, error) {
	p := NewPlayback(c)
	if err := a.AddPlayback(name, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddPlayback appends an existing playback under name.
func (a *Animator) AddPlayback(name string, p *Playback) error {
	if _, dup := a.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateLayer, name)
	}
	a.byName[name] = len(a.layers)
	a.layers = append(a.layers, Layer{Name: name, Playback: p})
	return nil
}

// Layer returns the playback registered under name, or nil.
func (a *Animator) Layer(name string) *Playback {
	if i, ok := a.byName[name]; ok {
		return a.layers[i].Playback
	}
	return nil
}

// Layers returns the layers in application order.
func (a *Animator) Layers() []Layer {
	return a.layers
}

// Start starts the named layer at now. It reports false for unknown layers.
func (a *Animator) Start(name string, now float32) bool {
	p := a.Layer(name)
	if p == nil {
		return false
	}
	p.Start(now)
	return true
}

// Stop stops the named layer. It reports false for unknown layers.
func (a *Animator) Stop(name string) bool {
	p := a.Layer(name)
	if p == nil {
		return false
	}
	p.Stop()
	return true
}

// StopAll stops every layer.
func (a *Animator) StopAll() {
	for _, l := range a.layers {
		l.Playback.Stop()
	}
}

// Rebase shifts every layer's start time by shift. Call it when the clock
// driving Resolve is moved back by shift.
func (a *Animator) Rebase(shift float32) {
	for _, l := range a.layers {
		l.Playback.Rebase(shift)
	}
}

// Active returns the names of running layers in application order.
func (a *Animator) Active() []string {
	var names []string
	for _, l := range a.layers {
		if l.Playback.Started() {
			names = append(names, l.Name)
		}
	}
	return names
}

// Finished returns the names of running one-shot layers that reached their end.
func (a *Animator) Finished(now float32) []string {
	var names []string
	for _, l := range a.layers {
		if l.Playback.Finished(now) {
			names = append(names, l.Name)
		}
	}
	return names
}

// AddProcedural registers procedural overrides. Nil functions are skipped.
func (a *Animator) AddProcedural(fns ...ProceduralFunc) {
	for _, fn := range fns {
		if fn != nil {
			a.procedural = append(a.procedural, fn)
		}
	}
}

// Resolve computes the skeleton's pose for f:
// reset to rest, add running clips in layer order, run procedural and explicit
// overrides, then apply visibility overrides.
func (a *Animator) Resolve(f Frame) {
	s := a.skel
	s.Reset()

	for _, l := range a.layers {
		p := l.Playback
		if !p.started {
			continue
		}
		a.applyClip(p.clip, p.Elapsed(f.Now))
	}

	for _, fn := range a.procedural {
		fn(s, &f)
	}
	for _, o := range f.Overrides {
		o.Apply(s)
	}

	for _, v := range f.Visibility {
		if v.Bone < 0 || v.Bone >= s.Len() {
			continue
		}
		s.Pose(v.Bone).Visible = v.Visible
	}
}

func (a *Animator) applyClip(c *Clip, t float32) {
	bind := a.bind(c)
	for i := range c.channels {
		bone := bind[i]
		if bone < 0 {
			continue
		}
		ch := &c.channels[i]
		v := Sample(ch, t)
		pose := a.skel.Pose(bone)
		switch ch.Kind {
		case KindTranslate:
			pose.Translate = pose.Translate.Add(v)
		case KindRotate:
			pose.Rotate = pose.Rotate.Add(v)
		case KindScale:
			pose.Scale = pose.Scale.Mul(v)
		}
	}
}

// bind resolves a clip's channel targets to bone indices once per clip.
// The skeleton's name index never changes, so the result stays valid.
func (a *Animator) bind(c *Clip) []int {
	if b, ok := a.bindings[c]; ok {
		return b
	}
	b := make([]int, len(c.channels))
	for i := range c.channels {
		name := c.channels[i].Bone
		idx, ok := a.skel.Index(name)
		if !ok {
			idx = -1
			a.reportMissing(c.name, name)
		}
		b[i] = idx
	}
	a.bindings[c] = b
	return b
}

func (a *Animator) reportMissing(clip, bone string) {
	ref := missingRef{clip, bone}
	if _, seen := a.missing[ref]; seen {
		return
	}
	a.missing[ref] = struct{}{}
	a.log.Debug("clip channel targets unknown bone",
		zap.String("skeleton", a.skel.Name()),
		zap.String("clip", clip),
		zap.String("bone", bone),
	)
}

// Missing returns the number of distinct clip/bone references that could not
// be bound to this skeleton.
func (a *Animator) Missing() int {
	return len(a.missing)
}
