package controller

import (
	stdmath "math"

	"github.com/pkg/errors"

	"github.com/Faultbox/creaturerig/pkg/anim"
	"github.com/Faultbox/creaturerig/pkg/anim/procedural"
	"github.com/Faultbox/creaturerig/pkg/math"
)

// Behavior compiles d against lib. Every slot's clip must exist in lib;
// bones named by procedural blocks are resolved per skeleton and skipped
// when absent.
func (d *Definition) Behavior(lib *anim.Library) (anim.Behavior, error) {
	clips := make([]*anim.Clip, len(d.Slots))
	for i, s := range d.Slots {
		c, ok := lib.Get(s.Clip)
		if !ok {
			return anim.Behavior{}, errors.Errorf("controller %q slot %q: clip %q not in library", d.Name, s.Name, s.Clip)
		}
		clips[i] = c
	}

	slots := d.Slots
	b := anim.Behavior{
		Name: d.Name,
		Setup: func(a *anim.Animator) error {
			for i, s := range slots {
				p, err := a.AddLayer(s.Name, clips[i])
				if err != nil {
					return err
				}
				if s.Speed > 0 {
					p.SetSpeed(s.Speed)
				}
			}
			return nil
		},
		Select: func(a *anim.Animator, now float32, in anim.Inputs) {
			taken := make(map[string]bool)
			for _, s := range slots {
				want := s.When.Match(in)
				if want && s.Group != "" {
					if taken[s.Group] {
						want = false
					} else {
						taken[s.Group] = true
					}
				}
				p := a.Layer(s.Name)
				if want {
					p.StartIfStopped(now)
				} else {
					p.Stop()
				}
			}
		},
	}

	procs, err := d.procedurals()
	if err != nil {
		return anim.Behavior{}, err
	}
	b.Procedural = procs

	if len(d.Hide) > 0 {
		hide := d.Hide
		b.Visibility = func(s *anim.Skeleton, in anim.Inputs) []anim.VisibilityOverride {
			var out []anim.VisibilityOverride
			for _, h := range hide {
				if in.Flag(h.Flag) == h.Not {
					continue
				}
				for _, name := range h.Bones {
					if i := s.Handle(name); i >= 0 {
						out = append(out, anim.VisibilityOverride{Bone: i, Visible: false})
					}
				}
			}
			return out
		}
	}
	return b, nil
}

func (d *Definition) procedurals() ([]anim.ProceduralBinder, error) {
	var out []anim.ProceduralBinder
	if hl := d.HeadLook; hl != nil {
		out = append(out, procedural.HeadLook(hl.Bone, hl.YawScale, hl.PitchScale))
	}
	for _, ls := range d.LimbSwing {
		axis, err := ParseAxis(ls.Axis)
		if err != nil {
			return nil, err
		}
		var offset float32
		if ls.Mirror {
			offset = stdmath.Pi
		}
		out = append(out, procedural.LimbSwing(ls.Bone, axis, ls.Scale, offset))
	}
	if br := d.Breathe; br != nil {
		out = append(out, procedural.Breathe(br.Bone, br.Period, br.Amount))
	}
	for _, tw := range d.Tweens {
		axis, err := ParseAxis(tw.Axis)
		if err != nil {
			return nil, err
		}
		kind, err := anim.ParseKind(tw.Kind)
		if err != nil {
			return nil, err
		}
		fn, ok := Easing(tw.Ease)
		if !ok {
			return nil, errors.Errorf("unknown ease %q", tw.Ease)
		}
		from, to := tw.From, tw.To
		if tw.Degrees && kind == anim.KindRotate {
			from, to = math.Radians(from), math.Radians(to)
		}
		out = append(out, procedural.Tween(tw.Bone, kind, axis, tw.Flag, from, to, tw.Duration, fn))
	}
	return out, nil
}

// Controller drives one entity's rig from a definition.
type Controller struct {
	def *Definition
	rig *anim.Rig
}

// New builds a controller for a fresh clone of proto.
func New(def *Definition, lib *anim.Library, proto *anim.Skeleton, opts ...anim.Option) (*Controller, error) {
	b, err := def.Behavior(lib)
	if err != nil {
		return nil, err
	}
	rig, err := anim.NewRig(proto, b, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "controller %q", def.Name)
	}
	return &Controller{def: def, rig: rig}, nil
}

// Definition returns the controller's definition.
func (c *Controller) Definition() *Definition {
	return c.def
}

// Rig returns the driven rig.
func (c *Controller) Rig() *anim.Rig {
	return c.rig
}

// Skeleton returns the driven skeleton.
func (c *Controller) Skeleton() *anim.Skeleton {
	return c.rig.Skeleton()
}

// Update starts slots whose condition holds, stops the rest, and resolves
// the pose for now. A one-shot whose condition keeps holding stays on its
// final pose until the condition drops.
func (c *Controller) Update(now float32, in anim.Inputs, overrides ...anim.Override) {
	c.rig.Update(now, in, overrides...)
}

// Finished returns the slots whose one-shot clip has completed.
func (c *Controller) Finished(now float32) []string {
	return c.rig.Animator().Finished(now)
}
