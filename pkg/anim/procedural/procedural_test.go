package procedural

import (
	stdmath "math"
	"testing"

	"github.com/tanema/gween/ease"

	"github.com/Faultbox/creaturerig/pkg/anim"
	"github.com/Faultbox/creaturerig/pkg/math"
)

func approx(a, b float32) bool {
	d := a - b
	return d < 1e-4 && d > -1e-4
}

func rig(t *testing.T, binders ...anim.ProceduralBinder) *anim.Rig {
	t.Helper()
	s, err := anim.NewSkeleton("biped", anim.BoneDef{
		Name: "body",
		Rest: anim.At(math.Vec3{Y: 12}),
		Children: []anim.BoneDef{
			{Name: "head", Rest: anim.At(math.Vec3{Y: 12})},
			{Name: "legL", Rest: anim.At(math.Vec3{X: 2})},
			{Name: "legR", Rest: anim.At(math.Vec3{X: -2})},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := anim.NewRig(s, anim.Behavior{Procedural: binders})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestHeadLook(t *testing.T) {
	r := rig(t, HeadLook("head", 1, 0.5))
	r.Update(0, anim.Inputs{LookYaw: 0.4, LookPitch: -0.6})

	rot := r.Skeleton().Pose(r.Skeleton().Handle("head")).Rotate
	if !approx(rot.Y, 0.4) || !approx(rot.X, -0.3) {
		t.Errorf("head rotation = %v, want yaw 0.4 pitch -0.3", rot)
	}
}

func TestLimbSwingOpposite(t *testing.T) {
	r := rig(t,
		LimbSwing("legL", 0, 1, 0),
		LimbSwing("legR", 0, 1, stdmath.Pi),
	)
	s := r.Skeleton()

	tests := []struct {
		phase, amp float32
	}{
		{0, 1},
		{1.3, 0.5},
		{4, 0.8},
	}
	for _, tt := range tests {
		r.Update(0, anim.Inputs{Phase: tt.phase, Amplitude: tt.amp})
		l := s.Pose(s.Handle("legL")).Rotate.X
		rr := s.Pose(s.Handle("legR")).Rotate.X

		want := float32(stdmath.Cos(float64(tt.phase*SwingFrequency))) * SwingAmplitude * tt.amp
		if !approx(l, want) {
			t.Errorf("phase %v: legL = %v, want %v", tt.phase, l, want)
		}
		if !approx(l, -rr) {
			t.Errorf("phase %v: legs should mirror, got %v and %v", tt.phase, l, rr)
		}
	}
}

func TestLimbSwingStill(t *testing.T) {
	r := rig(t, LimbSwing("legL", 0, 1, 0))
	r.Update(3, anim.Inputs{Phase: 7})
	if !r.Skeleton().AtRest() {
		t.Error("zero amplitude should not move the leg")
	}
}

func TestBreathe(t *testing.T) {
	r := rig(t, Breathe("body", 4, 0.1))
	s := r.Skeleton()

	tests := []struct {
		now  float32
		want float32
	}{
		{0, 1},
		{1, 1.1},
		{3, 0.9},
	}
	for _, tt := range tests {
		r.Update(tt.now, anim.Inputs{})
		if got := s.Pose(0).Scale.Y; !approx(got, tt.want) {
			t.Errorf("scale.y at %v = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestTween(t *testing.T) {
	r := rig(t, Tween("head", anim.KindRotate, 0, "charging", 0, 1, 2, ease.Linear))
	s := r.Skeleton()
	head := s.Handle("head")
	charging := anim.Inputs{Flags: map[string]bool{"charging": true}}

	steps := []struct {
		now  float32
		in   anim.Inputs
		want float32
	}{
		{5, anim.Inputs{}, 0},
		{10, charging, 0},
		{11, charging, 0.5},
		{15, charging, 1},
		{16, anim.Inputs{}, 0},
		{20, charging, 0},
		{20.5, charging, 0.25},
		{0.5, charging, 0.25},
		{1, charging, 0.5},
	}
	for _, st := range steps {
		r.Update(st.now, st.in)
		if got := s.Pose(head).Rotate.X; !approx(got, st.want) {
			t.Errorf("rotate.x at %v = %v, want %v", st.now, got, st.want)
		}
	}
}

func TestMissingBonesOptOut(t *testing.T) {
	binders := []anim.ProceduralBinder{
		HeadLook("neck", 1, 1),
		LimbSwing("tail3", 0, 1, 0),
		Breathe("chest", 2, 0.1),
		Tween("snout", anim.KindRotate, 0, "x", 0, 1, 1, nil),
		LimbSwing("legL", 5, 1, 0),
		Breathe("body", 0, 0.1),
	}
	s, _ := anim.NewSkeleton("stick", anim.BoneDef{Name: "body", Children: []anim.BoneDef{{Name: "legL"}}})
	for i, bind := range binders {
		if fn := bind(s); fn != nil {
			t.Errorf("binder %d should opt out", i)
		}
	}
}
