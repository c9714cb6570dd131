// Package procedural provides reusable procedural overrides driven by a
// frame's live inputs. Each constructor returns an anim.ProceduralBinder that
// resolves its bone once per rig and opts out when the skeleton lacks it.
package procedural

import (
	stdmath "math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/Faultbox/creaturerig/pkg/anim"
)

// Walk cycle constants for LimbSwing: phase frequency and peak swing.
const (
	SwingFrequency = 0.6662
	SwingAmplitude = 1.4
)

// HeadLook adds the frame's look angles to bone's rotation: pitch on X, yaw on Y.
func HeadLook(bone string, yawScale, pitchScale float32) anim.ProceduralBinder {
	return func(s *anim.Skeleton) anim.ProceduralFunc {
		h := s.Handle(bone)
		if h < 0 {
			return nil
		}
		return func(s *anim.Skeleton, f *anim.Frame) {
			p := s.Pose(h)
			p.Rotate.X += f.Inputs.LookPitch * pitchScale
			p.Rotate.Y += f.Inputs.LookYaw * yawScale
		}
	}
}

// LimbSwing swings bone about axis with the locomotion phase:
//
//	cos(phase*SwingFrequency + offset) * SwingAmplitude * amplitude * scale
//
// Opposite limbs use offsets that differ by Pi.
func LimbSwing(bone string, axis int, scale, offset float32) anim.ProceduralBinder {
	return func(s *anim.Skeleton) anim.ProceduralFunc {
		h := s.Handle(bone)
		if h < 0 || axis < 0 || axis > 2 {
			return nil
		}
		return func(s *anim.Skeleton, f *anim.Frame) {
			in := f.Inputs
			swing := Swing(in.Phase, offset) * in.Amplitude * scale
			r := &s.Pose(h).Rotate
			*r = r.Set(axis, r.Get(axis)+swing)
		}
	}
}

// Swing returns the unscaled walk-cycle swing angle at phase.
func Swing(phase, offset float32) float32 {
	return float32(stdmath.Cos(float64(phase*SwingFrequency+offset))) * SwingAmplitude
}

// Breathe scales bone on Y by 1 + amount*sin(2*Pi*now/period).
func Breathe(bone string, period, amount float32) anim.ProceduralBinder {
	return func(s *anim.Skeleton) anim.ProceduralFunc {
		h := s.Handle(bone)
		if h < 0 || period <= 0 {
			return nil
		}
		return func(s *anim.Skeleton, f *anim.Frame) {
			w := 2 * stdmath.Pi * float64(f.Now/period)
			s.Pose(h).Scale.Y *= 1 + amount*float32(stdmath.Sin(w))
		}
	}
}

// Tween eases one component of bone from `from` to `to` over duration seconds
// while flag is set, adding the eased value to the pose. Clearing the flag
// rewinds the tween. A nil ease function means linear.
func Tween(bone string, kind anim.Kind, axis int, flag string, from, to, duration float32, fn ease.TweenFunc) anim.ProceduralBinder {
	if fn == nil {
		fn = ease.Linear
	}
	return func(s *anim.Skeleton) anim.ProceduralFunc {
		h := s.Handle(bone)
		if h < 0 || axis < 0 || axis > 2 || duration <= 0 {
			return nil
		}

		tw := gween.New(from, to, duration, fn)
		var (
			active  bool
			last    float32
			elapsed float32
		)
		return func(s *anim.Skeleton, f *anim.Frame) {
			if !f.Inputs.Flag(flag) {
				active = false
				return
			}
			if !active {
				active = true
				last, elapsed = f.Now, 0
				tw.Reset()
			}
			// A clock moved backwards contributes nothing.
			elapsed += max(0, f.Now-last)
			last = f.Now
			v, _ := tw.Set(elapsed)
			c := s.Pose(h).Component(kind)
			*c = c.Set(axis, c.Get(axis)+v)
		}
	}
}
