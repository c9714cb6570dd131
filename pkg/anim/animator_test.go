package anim

import (
	"errors"
	stdmath "math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/creaturerig/pkg/math"
)

func walkClip() *Clip {
	return MustClip("walk", 1, true, Channel{
		Bone: "legL",
		Kind: KindRotate,
		Keys: []Keyframe{
			Key(0, rotX(0), CurveLinear),
			Key(0.5, rotX(20), CurveLinear),
			Key(1, rotX(0), CurveLinear),
		},
	})
}

func jawClip() *Clip {
	return MustClip("bite", 0.4, false, Channel{
		Bone: "jaw",
		Kind: KindRotate,
		Keys: []Keyframe{
			Key(0, rotX(0), CurveLinear),
			Key(0.2, rotX(15), CurveLinear),
			Key(0.4, rotX(0), CurveLinear),
		},
	})
}

func newTestAnimator(t *testing.T, opts ...Option) (*Animator, *Skeleton) {
	t.Helper()
	s := mustSkeleton(t)
	return NewAnimator(s, opts...), s
}

func TestResolveNoLayersIsRest(t *testing.T) {
	a, s := newTestAnimator(t)
	s.Pose(1).Rotate.Y = 3

	a.Resolve(Frame{Now: 1})
	if !s.AtRest() {
		t.Fatal("resolve without layers should leave the skeleton at rest")
	}
	a.Resolve(Frame{Now: 2})
	if !s.AtRest() {
		t.Fatal("resolving twice should still be at rest")
	}
}

func TestResolveStoppedLayerIgnored(t *testing.T) {
	a, s := newTestAnimator(t)
	if _, err := a.AddLayer("walk", walkClip()); err != nil {
		t.Fatal(err)
	}
	a.Resolve(Frame{Now: 0.25})
	if !s.AtRest() {
		t.Error("stopped layers must not contribute")
	}
}

func TestResolveWalkLoop(t *testing.T) {
	a, s := newTestAnimator(t)
	if _, err := a.AddLayer("walk", walkClip()); err != nil {
		t.Fatal(err)
	}
	a.Start("walk", 0)
	legL := s.Handle("legL")

	for _, now := range []float32{0.25, 1.25, 0.75} {
		a.Resolve(Frame{Now: now})
		if got := s.Pose(legL).Rotate.X; !approx(got, 10) {
			t.Errorf("legL rotate.x at %v = %v, want 10", now, got)
		}
	}

	a.Resolve(Frame{Now: 0.5})
	if got := s.Pose(legL).Rotate.X; got != 20 {
		t.Errorf("legL rotate.x at key 0.5 = %v, want 20", got)
	}
}

func TestResolveNonFiniteTime(t *testing.T) {
	a, s := newTestAnimator(t)
	if _, err := a.AddLayer("walk", walkClip()); err != nil {
		t.Fatal(err)
	}
	a.Start("walk", 0)
	legL := s.Handle("legL")
	rest := s.Bone(legL).Rest.Rotate.X

	for _, now := range []float64{stdmath.NaN(), stdmath.Inf(1)} {
		a.Resolve(Frame{Now: float32(now)})
		if got := s.Pose(legL).Rotate.X; got != rest {
			t.Errorf("legL rotate.x at %v = %v, want the final key %v", now, got, rest)
		}
	}
}

func TestResolveOneShotFreezes(t *testing.T) {
	a, s := newTestAnimator(t)
	if _, err := a.AddLayer("bite", jawClip()); err != nil {
		t.Fatal(err)
	}
	a.Start("bite", 0)
	jaw := s.Handle("jaw")

	a.Resolve(Frame{Now: 0.2})
	if got := s.Pose(jaw).Rotate.X; got != 15 {
		t.Errorf("jaw at 0.2 = %v, want 15", got)
	}
	for _, now := range []float32{0.4, 10} {
		a.Resolve(Frame{Now: now})
		if got := s.Pose(jaw).Rotate.X; got != 0 {
			t.Errorf("jaw at %v = %v, want 0", now, got)
		}
	}
	if got := a.Finished(10); len(got) != 1 || got[0] != "bite" {
		t.Errorf("Finished(10) = %v, want [bite]", got)
	}
}

func TestResolveAddsToRestPose(t *testing.T) {
	a, s := newTestAnimator(t)
	head := s.Handle("head")
	s.Bone(head).Rest.Rotate.X = 5
	s.Bone(head).Rest.Scale = math.Vec3{X: 2, Y: 2, Z: 2}

	c := MustClip("nod", 1, true,
		Channel{Bone: "head", Kind: KindRotate, Keys: []Keyframe{Key(0, rotX(1), CurveStep)}},
		Channel{Bone: "head", Kind: KindScale, Keys: []Keyframe{Key(0, math.Vec3{X: 1.5, Y: 1, Z: 1}, CurveStep)}},
		Channel{Bone: "head", Kind: KindTranslate, Keys: []Keyframe{Key(0, math.Vec3{Z: 1}, CurveStep)}},
	)
	if _, err := a.AddLayer("nod", c); err != nil {
		t.Fatal(err)
	}
	a.Start("nod", 0)
	a.Resolve(Frame{Now: 0.3})

	pose := s.Pose(head)
	if pose.Rotate.X != 6 {
		t.Errorf("rotate.x = %v, want 6", pose.Rotate.X)
	}
	if want := (math.Vec3{X: 3, Y: 2, Z: 2}); pose.Scale != want {
		t.Errorf("scale = %v, want %v", pose.Scale, want)
	}
	if want := (math.Vec3{Y: 2, Z: -4}); pose.Translate != want {
		t.Errorf("translate = %v, want %v", pose.Translate, want)
	}
}

func TestResolveLayersAccumulate(t *testing.T) {
	a, s := newTestAnimator(t)
	if _, err := a.AddLayer("walk", walkClip()); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddLayer("bite", jawClip()); err != nil {
		t.Fatal(err)
	}
	sway := MustClip("sway", 1, true, Channel{
		Bone: "legL", Kind: KindRotate,
		Keys: []Keyframe{Key(0, rotX(3), CurveStep)},
	})
	if _, err := a.AddLayer("sway", sway); err != nil {
		t.Fatal(err)
	}
	a.Start("walk", 0)
	a.Start("bite", 0)
	a.Start("sway", 0)

	a.Resolve(Frame{Now: 0.3})
	if got := s.Pose(s.Handle("legL")).Rotate.X; !approx(got, 15) {
		t.Errorf("legL = %v, want 12+3", got)
	}
	if got := s.Pose(s.Handle("jaw")).Rotate.X; !approx(got, 7.5) {
		t.Errorf("jaw = %v, want 7.5", got)
	}
	if got := a.Active(); len(got) != 3 {
		t.Errorf("Active() = %v", got)
	}
}

func TestResolveMissingBone(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a, s := newTestAnimator(t, WithLogger(zap.New(core)))

	c := MustClip("wag", 1, true,
		Channel{Bone: "tail3", Kind: KindRotate, Keys: []Keyframe{Key(0, rotX(30), CurveLinear)}},
		Channel{Bone: "head", Kind: KindRotate, Keys: []Keyframe{Key(0, rotX(2), CurveLinear)}},
	)
	if _, err := a.AddLayer("wag", c); err != nil {
		t.Fatal(err)
	}
	a.Start("wag", 0)

	a.Resolve(Frame{Now: 0.1})
	a.Resolve(Frame{Now: 0.2})

	if got := s.Pose(s.Handle("head")).Rotate.X; got != 2 {
		t.Errorf("head rotate.x = %v, want 2", got)
	}
	if a.Missing() != 1 {
		t.Errorf("Missing() = %d, want 1", a.Missing())
	}
	entries := logs.FilterField(zap.String("bone", "tail3")).All()
	if len(entries) != 1 {
		t.Errorf("expected the missing bone to be logged once, got %d entries", len(entries))
	}
}

func TestResolveProceduralAfterClips(t *testing.T) {
	var seen float32
	look := func(s *Skeleton, f *Frame) {
		head := s.Handle("head")
		seen = s.Pose(head).Rotate.X
		s.Pose(head).Rotate.Y = f.Inputs.LookYaw
	}

	a, s := newTestAnimator(t, WithProcedural(look, nil))
	nod := MustClip("nod", 1, true, Channel{Bone: "head", Kind: KindRotate, Keys: []Keyframe{Key(0, math.Vec3{X: 4, Y: 9}, CurveStep)}})
	if _, err := a.AddLayer("nod", nod); err != nil {
		t.Fatal(err)
	}
	a.Start("nod", 0)

	a.Resolve(Frame{Now: 0.5, Inputs: Inputs{LookYaw: 0.7}})
	if seen != 4 {
		t.Errorf("procedural saw rotate.x = %v, want the clip's 4", seen)
	}
	if got := s.Pose(s.Handle("head")).Rotate.Y; !approx(got, 0.7) {
		t.Errorf("procedural should override the clip: rotate.y = %v", got)
	}
}

func TestOverrideApply(t *testing.T) {
	a, s := newTestAnimator(t)
	legL := s.Handle("legL")
	clip := MustClip("pose", 1, true, Channel{Bone: "legL", Kind: KindRotate, Keys: []Keyframe{Key(0, math.Vec3{X: 1, Y: 2, Z: 3}, CurveStep)}})
	if _, err := a.AddLayer("pose", clip); err != nil {
		t.Fatal(err)
	}
	a.Start("pose", 0)

	tests := []struct {
		name string
		o    Override
		want math.Vec3
	}{
		{"set x", Override{Bone: legL, Kind: KindRotate, Mode: OverrideSet, Axes: AxisX, Value: math.Vec3{X: 9, Y: 9, Z: 9}}, math.Vec3{X: 9, Y: 2, Z: 3}},
		{"add yz", Override{Bone: legL, Kind: KindRotate, Mode: OverrideAdd, Axes: AxisY | AxisZ, Value: math.Vec3{X: 5, Y: 1, Z: 1}}, math.Vec3{X: 1, Y: 3, Z: 4}},
		{"set all", Override{Bone: legL, Kind: KindRotate, Axes: AxesAll}, math.Vec3{}},
		{"missing handle", Override{Bone: -1, Kind: KindRotate, Axes: AxesAll}, math.Vec3{X: 1, Y: 2, Z: 3}},
		{"out of range", Override{Bone: 99, Kind: KindRotate, Axes: AxesAll}, math.Vec3{X: 1, Y: 2, Z: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.Resolve(Frame{Now: 0, Overrides: []Override{tt.o}})
			if got := s.Pose(legL).Rotate; got != tt.want {
				t.Errorf("rotate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverridesInOrder(t *testing.T) {
	a, s := newTestAnimator(t)
	head := s.Handle("head")

	a.Resolve(Frame{Overrides: []Override{
		{Bone: head, Kind: KindRotate, Mode: OverrideSet, Axes: AxisX, Value: math.Vec3{X: 1}},
		{Bone: head, Kind: KindRotate, Mode: OverrideSet, Axes: AxisX, Value: math.Vec3{X: 2}},
		{Bone: head, Kind: KindRotate, Mode: OverrideAdd, Axes: AxisX, Value: math.Vec3{X: 0.5}},
	}})
	if got := s.Pose(head).Rotate.X; got != 2.5 {
		t.Errorf("rotate.x = %v, want 2.5", got)
	}
}

func TestResolveVisibility(t *testing.T) {
	a, s := newTestAnimator(t)
	jaw := s.Handle("jaw")

	a.Resolve(Frame{Visibility: []VisibilityOverride{{Bone: jaw, Visible: false}, {Bone: -1}}})
	if s.Visible(jaw) {
		t.Error("jaw should be hidden for this frame")
	}

	a.Resolve(Frame{})
	if !s.Visible(jaw) {
		t.Error("visibility must reset with the rest pose")
	}
}

func TestAnimatorLayers(t *testing.T) {
	a, _ := newTestAnimator(t)
	if _, err := a.AddLayer("walk", walkClip()); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddLayer("walk", jawClip()); !errors.Is(err, ErrDuplicateLayer) {
		t.Errorf("expected ErrDuplicateLayer, got %v", err)
	}
	if a.Start("fly", 0) || a.Stop("fly") {
		t.Error("unknown layers should report false")
	}
	if a.Layer("fly") != nil {
		t.Error("Layer(fly) should be nil")
	}

	a.Start("walk", 0)
	a.StopAll()
	if len(a.Active()) != 0 {
		t.Errorf("Active() after StopAll = %v", a.Active())
	}
}

func TestAnimatorRebase(t *testing.T) {
	a, s := newTestAnimator(t)
	if _, err := a.AddLayer("walk", walkClip()); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AddLayer("bite", jawClip()); err != nil {
		t.Fatal(err)
	}
	a.Start("walk", 7200)
	a.Start("bite", 7200)
	a.Rebase(7200)

	a.Resolve(Frame{Now: 0.2})
	if got := s.Pose(s.Handle("jaw")).Rotate.X; !approx(got, 15) {
		t.Errorf("jaw after rebase = %v, want 15", got)
	}
	if got := s.Pose(s.Handle("legL")).Rotate.X; !approx(got, 8) {
		t.Errorf("legL after rebase = %v, want 8", got)
	}
	if len(a.Finished(0.2)) != 0 || len(a.Finished(0.4)) != 1 {
		t.Error("one-shot should finish relative to the rebased start")
	}
}
