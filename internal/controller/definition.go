// Package controller turns a data-driven species definition into an
// anim.Behavior: which clips play under which conditions, and which
// procedural adjustments run on top.
package controller

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tanema/gween/ease"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/creaturerig/pkg/anim"
)

// Definition is the YAML form of a controller.
//
//	name: wolf
//	skeleton: quadruped
//	slots:
//	  - {name: run,  clip: gallop, group: move, when: {min_speed: 4}}
//	  - {name: walk, clip: walk,   group: move, when: {min_speed: 0.1}}
//	  - {name: bite, clip: bite,   when: {flag: attacking}}
//	head_look: {bone: head, yaw_scale: 1, pitch_scale: 1}
//	hide:
//	  - {bones: [wool], flag: sheared}
type Definition struct {
	Name      string      `yaml:"name"`
	Skeleton  string      `yaml:"skeleton"`
	Slots     []Slot      `yaml:"slots"`
	HeadLook  *HeadLook   `yaml:"head_look,omitempty"`
	LimbSwing []LimbSwing `yaml:"limb_swing,omitempty"`
	Breathe   *Breathe    `yaml:"breathe,omitempty"`
	Tweens    []Tween     `yaml:"tweens,omitempty"`
	Hide      []Hide      `yaml:"hide,omitempty"`
}

// Slot binds a clip to the condition that plays it. Slots sharing a group
// are exclusive and the first matching one in definition order wins.
type Slot struct {
	Name  string    `yaml:"name"`
	Clip  string    `yaml:"clip"`
	Group string    `yaml:"group,omitempty"`
	Speed float32   `yaml:"speed,omitempty"`
	When  Condition `yaml:"when"`
}

// Condition is a predicate over frame inputs. All set fields must hold.
// A zero MaxSpeed means no upper bound.
type Condition struct {
	Flag     string  `yaml:"flag,omitempty"`
	Not      bool    `yaml:"not,omitempty"`
	MinSpeed float32 `yaml:"min_speed,omitempty"`
	MaxSpeed float32 `yaml:"max_speed,omitempty"`
}

// Match reports whether in satisfies c.
func (c Condition) Match(in anim.Inputs) bool {
	if c.Flag != "" && in.Flag(c.Flag) == c.Not {
		return false
	}
	if in.Speed < c.MinSpeed {
		return false
	}
	if c.MaxSpeed > 0 && in.Speed > c.MaxSpeed {
		return false
	}
	return true
}

// HeadLook turns a bone toward the look direction.
type HeadLook struct {
	Bone       string  `yaml:"bone"`
	YawScale   float32 `yaml:"yaw_scale"`
	PitchScale float32 `yaml:"pitch_scale"`
}

// LimbSwing swings a bone with the locomotion phase. Mirror shifts the phase
// by half a cycle for the opposite limb.
type LimbSwing struct {
	Bone   string  `yaml:"bone"`
	Axis   string  `yaml:"axis,omitempty"`
	Scale  float32 `yaml:"scale"`
	Mirror bool    `yaml:"mirror,omitempty"`
}

// Breathe pulses a bone's Y scale.
type Breathe struct {
	Bone   string  `yaml:"bone"`
	Period float32 `yaml:"period"`
	Amount float32 `yaml:"amount"`
}

// Tween eases one pose component while a flag is set.
type Tween struct {
	Bone     string  `yaml:"bone"`
	Kind     string  `yaml:"kind"`
	Axis     string  `yaml:"axis"`
	Flag     string  `yaml:"flag"`
	From     float32 `yaml:"from"`
	To       float32 `yaml:"to"`
	Duration float32 `yaml:"duration"`
	Ease     string  `yaml:"ease,omitempty"`
	Degrees  bool    `yaml:"degrees,omitempty"`
}

// Hide hides bones while a condition on a flag holds.
type Hide struct {
	Bones []string `yaml:"bones"`
	Flag  string   `yaml:"flag"`
	Not   bool     `yaml:"not,omitempty"`
}

var easings = map[string]ease.TweenFunc{
	"":           ease.Linear,
	"linear":     ease.Linear,
	"inquad":     ease.InQuad,
	"outquad":    ease.OutQuad,
	"inoutquad":  ease.InOutQuad,
	"incubic":    ease.InCubic,
	"outcubic":   ease.OutCubic,
	"inoutcubic": ease.InOutCubic,
	"insine":     ease.InSine,
	"outsine":    ease.OutSine,
	"inoutsine":  ease.InOutSine,
	"outbounce":  ease.OutBounce,
}

// Easing returns the easing function registered under name.
// Names are matched case-insensitively and ignore dashes and underscores.
func Easing(name string) (ease.TweenFunc, bool) {
	key := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(name))
	fn, ok := easings[key]
	return fn, ok
}

// ParseAxis converts x, y or z to a component index.
func ParseAxis(s string) (int, error) {
	switch strings.ToLower(s) {
	case "x", "":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return 0, errors.Errorf("unknown axis %q", s)
}

// Parse decodes and validates a definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, errors.Wrap(err, "decoding controller")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads and parses the definition at path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading controller %s", path)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "controller %s", path)
	}
	return def, nil
}

// Validate checks everything that does not depend on a clip library.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New("controller name is empty")
	}

	seen := make(map[string]bool, len(d.Slots))
	for i, s := range d.Slots {
		if s.Name == "" || s.Clip == "" {
			return errors.Errorf("slot %d needs a name and a clip", i)
		}
		if seen[s.Name] {
			return errors.Errorf("duplicate slot %q", s.Name)
		}
		seen[s.Name] = true
		if s.Speed < 0 {
			return errors.Errorf("slot %q has negative speed", s.Name)
		}
	}

	for _, ls := range d.LimbSwing {
		if _, err := ParseAxis(ls.Axis); err != nil {
			return errors.Wrapf(err, "limb_swing %q", ls.Bone)
		}
	}
	if d.Breathe != nil && d.Breathe.Period <= 0 {
		return errors.Errorf("breathe period must be positive, got %v", d.Breathe.Period)
	}
	for _, tw := range d.Tweens {
		if _, err := ParseAxis(tw.Axis); err != nil {
			return errors.Wrapf(err, "tween %q", tw.Bone)
		}
		if _, err := anim.ParseKind(tw.Kind); err != nil {
			return errors.Wrapf(err, "tween %q", tw.Bone)
		}
		if _, ok := Easing(tw.Ease); !ok {
			return errors.Errorf("tween %q: unknown ease %q", tw.Bone, tw.Ease)
		}
		if tw.Duration <= 0 || tw.Flag == "" {
			return errors.Errorf("tween %q needs a flag and a positive duration", tw.Bone)
		}
	}
	for _, h := range d.Hide {
		if h.Flag == "" {
			return errors.New("hide block needs a flag")
		}
	}
	return nil
}
