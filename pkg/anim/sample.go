package anim

import (
	stdmath "math"
	"sort"

	"github.com/Faultbox/creaturerig/pkg/math"
)

// Sample evaluates ch at time t. It has no side effects.
//
// Times before the first key return the first value and times at or after the
// last key return the last value; looping callers wrap t before sampling.
// When t lands exactly on a keyframe time the earliest key with that time wins.
// A NaN t holds the last value, like +Inf.
func Sample(ch *Channel, t float32) math.Vec3 {
	keys := ch.Keys
	n := len(keys)
	if stdmath.IsNaN(float64(t)) {
		return keys[n-1].Value
	}
	if n == 1 || t <= keys[0].Time {
		return keys[0].Value
	}
	if t >= keys[n-1].Time {
		return keys[n-1].Value
	}

	// First key strictly after t; the bracket is (next-1, next).
	next := sort.Search(n, func(i int) bool { return keys[i].Time > t })
	if next >= n {
		return keys[n-1].Value
	}
	i0 := next - 1
	k0 := &keys[i0]
	if k0.Time == t {
		first := sort.Search(n, func(i int) bool { return keys[i].Time >= t })
		return keys[first].Value
	}
	k1 := &keys[next]

	switch k0.Curve {
	case CurveStep:
		return k0.Value
	case CurveCatmullRom:
		u := (t - k0.Time) / (k1.Time - k0.Time)
		p0 := keys[max(i0-1, 0)].Value
		p3 := keys[min(next+1, n-1)].Value
		return math.CatmullRom(p0, k0.Value, k1.Value, p3, u)
	default:
		u := (t - k0.Time) / (k1.Time - k0.Time)
		return math.Lerp(k0.Value, k1.Value, u)
	}
}

// SampleClip samples every channel of c at t after wrapping t onto the
// clip's timeline, calling fn once per channel.
func SampleClip(c *Clip, t float32, fn func(ch *Channel, v math.Vec3)) {
	t = c.Wrap(t)
	for i := range c.channels {
		ch := &c.channels[i]
		fn(ch, Sample(ch, t))
	}
}
