package anim

import (
	"errors"
	"testing"

	"github.com/Faultbox/creaturerig/pkg/math"
)

func approx(a, b float32) bool {
	d := a - b
	return d < 1e-4 && d > -1e-4
}

func approxVec(a, b math.Vec3) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.Z, b.Z)
}

func rotX(deg float32) math.Vec3 {
	return math.Vec3{X: deg}
}

func TestNewClipValidation(t *testing.T) {
	good := Channel{Bone: "head", Kind: KindRotate, Keys: []Keyframe{Key(0, math.Vec3{}, CurveLinear)}}

	tests := []struct {
		name     string
		clip     string
		length   float32
		channels []Channel
		want     error
	}{
		{"empty name", "", 1, nil, ErrEmptyClipName},
		{"zero length", "idle", 0, nil, ErrNonPositiveLength},
		{"negative length", "idle", -2, nil, ErrNonPositiveLength},
		{"empty channel", "idle", 1, []Channel{{Bone: "head", Kind: KindRotate}}, ErrEmptyChannel},
		{"empty bone", "idle", 1, []Channel{{Kind: KindRotate, Keys: good.Keys}}, ErrEmptyChannelBone},
		{"unknown kind", "idle", 1, []Channel{{Bone: "head", Kind: Kind(9), Keys: good.Keys}}, ErrUnknownKind},
		{"negative time", "idle", 1, []Channel{{Bone: "head", Kind: KindRotate, Keys: []Keyframe{Key(-1, math.Vec3{}, CurveLinear)}}}, ErrNegativeKeyTime},
		{"unsorted", "idle", 1, []Channel{{Bone: "head", Kind: KindRotate, Keys: []Keyframe{
			Key(0.5, math.Vec3{}, CurveLinear),
			Key(0.2, math.Vec3{}, CurveLinear),
		}}}, ErrUnsortedKeyframes},
		{"unknown curve", "idle", 1, []Channel{{Bone: "head", Kind: KindRotate, Keys: []Keyframe{Key(0, math.Vec3{}, Curve(7))}}}, ErrUnknownCurve},
		{"duplicate channel", "idle", 1, []Channel{good, good}, ErrDuplicateChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClip(tt.clip, tt.length, true, tt.channels...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewClipSameBoneDifferentKinds(t *testing.T) {
	keys := []Keyframe{Key(0, math.Vec3{}, CurveLinear)}
	_, err := NewClip("breathe", 2, true,
		Channel{Bone: "body", Kind: KindRotate, Keys: keys},
		Channel{Bone: "body", Kind: KindScale, Keys: []Keyframe{Key(0, math.One, CurveLinear)}},
	)
	if err != nil {
		t.Fatalf("rotate and scale on one bone should be allowed: %v", err)
	}
}

func TestNewClipCopiesKeys(t *testing.T) {
	keys := []Keyframe{Key(0, rotX(1), CurveLinear)}
	c := MustClip("nod", 1, false, Channel{Bone: "head", Kind: KindRotate, Keys: keys})

	keys[0].Value = rotX(99)
	if got := c.Channels()[0].Keys[0].Value; got != rotX(1) {
		t.Errorf("clip should own its keyframes, got %v", got)
	}
}

func TestMustClipPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustClip to panic on invalid data")
		}
	}()
	MustClip("", 1, false)
}

func TestClipWrap(t *testing.T) {
	loop := MustClip("walk", 1, true)
	once := MustClip("attack", 0.4, false)

	tests := []struct {
		clip *Clip
		in   float32
		want float32
	}{
		{loop, 0, 0},
		{loop, 0.25, 0.25},
		{loop, 1.25, 0.25},
		{loop, 3, 0},
		{loop, -0.25, 0.75},
		{once, 0.2, 0.2},
		{once, 0.4, 0.4},
		{once, 10, 0.4},
		{once, -1, 0},
	}
	for _, tt := range tests {
		if got := tt.clip.Wrap(tt.in); !approx(got, tt.want) {
			t.Errorf("%s.Wrap(%v) = %v, want %v", tt.clip.Name(), tt.in, got, tt.want)
		}
	}
}

func TestParseCurve(t *testing.T) {
	tests := []struct {
		in   string
		want Curve
		ok   bool
	}{
		{"step", CurveStep, true},
		{"LINEAR", CurveLinear, true},
		{"", CurveLinear, true},
		{"catmull-rom", CurveCatmullRom, true},
		{"bezier", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseCurve(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseCurve(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrUnknownCurve) {
			t.Errorf("ParseCurve(%q): expected ErrUnknownCurve, got %v", tt.in, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindTranslate, KindRotate, KindScale} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("shear"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
