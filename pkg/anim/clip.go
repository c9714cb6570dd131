package anim

import (
	"fmt"
	stdmath "math"
	"strings"

	"github.com/Faultbox/creaturerig/pkg/math"
)

// Curve selects how a keyframe interpolates towards the next one.
type Curve uint8

const (
	CurveStep Curve = iota
	CurveLinear
	CurveCatmullRom
)

// String returns the curve name used in asset files.
func (c Curve) String() string {
	switch c {
	case CurveStep:
		return "step"
	case CurveLinear:
		return "linear"
	case CurveCatmullRom:
		return "catmullrom"
	default:
		return fmt.Sprintf("curve(%d)", uint8(c))
	}
}

// ParseCurve converts an asset curve name. An empty name means linear.
func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(s) {
	case "step":
		return CurveStep, nil
	case "", "linear":
		return CurveLinear, nil
	case "catmullrom", "catmull-rom", "catmull_rom":
		return CurveCatmullRom, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurve, s)
	}
}

// Kind is the transform component a channel drives.
type Kind uint8

const (
	KindTranslate Kind = iota
	KindRotate
	KindScale
)

// String returns the kind name used in asset files.
func (k Kind) String() string {
	switch k {
	case KindTranslate:
		return "translate"
	case KindRotate:
		return "rotate"
	case KindScale:
		return "scale"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind converts an asset kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "translate", "position":
		return KindTranslate, nil
	case "rotate", "rotation":
		return KindRotate, nil
	case "scale":
		return KindScale, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Keyframe is a timed value. Curve describes the segment starting at this key.
type Keyframe struct {
	Time  float32
	Value math.Vec3
	Curve Curve
}

// Key is shorthand for a Keyframe literal.
func Key(t float32, v math.Vec3, c Curve) Keyframe {
	return Keyframe{Time: t, Value: v, Curve: c}
}

// Channel is the keyframe track for one bone and transform kind.
type Channel struct {
	Bone string
	Kind Kind
	Keys []Keyframe
}

// Clip is an immutable named set of channels with a fixed length.
type Clip struct {
	name     string
	length   float32
	looping  bool
	channels []Channel
}

// NewClip validates and copies the channels into a new Clip.
// Degenerate data is rejected here so playback never has to check it.
func NewClip(name string, length float32, looping bool, channels ...Channel) (*Clip, error) {
	if name == "" {
		return nil, ErrEmptyClipName
	}
	if !(length > 0) || stdmath.IsInf(float64(length), 0) {
		return nil, fmt.Errorf("clip %q: %w (%v)", name, ErrNonPositiveLength, length)
	}

	type target struct {
		bone string
		kind Kind
	}
	seen := make(map[target]struct{}, len(channels))
	owned := make([]Channel, len(channels))

	for i, ch := range channels {
		if err := validateChannel(ch); err != nil {
			return nil, fmt.Errorf("clip %q channel %d (%s %s): %w", name, i, ch.Bone, ch.Kind, err)
		}
		key := target{ch.Bone, ch.Kind}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("clip %q: %w: %s %s", name, ErrDuplicateChannel, ch.Bone, ch.Kind)
		}
		seen[key] = struct{}{}

		keys := make([]Keyframe, len(ch.Keys))
		copy(keys, ch.Keys)
		owned[i] = Channel{Bone: ch.Bone, Kind: ch.Kind, Keys: keys}
	}

	return &Clip{
		name:     name,
		length:   length,
		looping:  looping,
		channels: owned,
	}, nil
}

// MustClip is NewClip for statically authored clips; it panics on invalid data.
func MustClip(name string, length float32, looping bool, channels ...Channel) *Clip {
	c, err := NewClip(name, length, looping, channels...)
	if err != nil {
		panic(err)
	}
	return c
}

func validateChannel(ch Channel) error {
	if ch.Bone == "" {
		return ErrEmptyChannelBone
	}
	if ch.Kind > KindScale {
		return ErrUnknownKind
	}
	if len(ch.Keys) == 0 {
		return ErrEmptyChannel
	}
	for i, k := range ch.Keys {
		if k.Time < 0 || stdmath.IsNaN(float64(k.Time)) {
			return fmt.Errorf("%w: key %d at %v", ErrNegativeKeyTime, i, k.Time)
		}
		if k.Curve > CurveCatmullRom {
			return fmt.Errorf("%w: key %d", ErrUnknownCurve, i)
		}
		if i > 0 && k.Time < ch.Keys[i-1].Time {
			return fmt.Errorf("%w: key %d at %v after %v", ErrUnsortedKeyframes, i, k.Time, ch.Keys[i-1].Time)
		}
	}
	return nil
}

// Name returns the clip name.
func (c *Clip) Name() string {
	return c.name
}

// Length returns the clip length in seconds.
func (c *Clip) Length() float32 {
	return c.length
}

// Looping reports whether the clip wraps around at its end.
func (c *Clip) Looping() bool {
	return c.looping
}

// Channels returns the clip's channels. The slice is shared and must not be modified.
func (c *Clip) Channels() []Channel {
	return c.channels
}

// Wrap maps an elapsed time onto the clip's timeline: modulo length for
// looping clips, clamped to [0, length] otherwise.
func (c *Clip) Wrap(t float32) float32 {
	if c.looping {
		w := float32(stdmath.Mod(float64(t), float64(c.length)))
		if w < 0 {
			w += c.length
		}
		// Mod of a tiny negative value can round up to length itself.
		if w >= c.length {
			w = 0
		}
		return w
	}
	if t < 0 {
		return 0
	}
	if t > c.length {
		return c.length
	}
	return t
}
