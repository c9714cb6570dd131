package anim

// ProceduralBinder resolves bone handles against a skeleton once and returns
// the per-frame function. It returns nil when the skeleton lacks the bones it
// needs. Binders run once per rig, so any state they allocate is per entity.
type ProceduralBinder func(s *Skeleton) ProceduralFunc

// Behavior is a species' customisation of the shared engine: which layers
// exist, how inputs start and stop them, and which procedural and visibility
// adjustments run each frame. All fields are optional.
type Behavior struct {
	Name string

	// Setup registers the rig's layers.
	Setup func(a *Animator) error

	// Select starts and stops layers from the frame's inputs.
	Select func(a *Animator, now float32, in Inputs)

	// Procedural is bound once per rig and runs after clip layers.
	Procedural []ProceduralBinder

	// Visibility returns the frame's visibility overrides.
	Visibility func(s *Skeleton, in Inputs) []VisibilityOverride
}

// Rig is one entity's animated skeleton: its own skeleton clone, animator and
// the behavior driving them.
type Rig struct {
	skel     *Skeleton
	animator *Animator
	behavior Behavior
}

// NewRig clones proto, runs the behavior's setup and binds its procedural overrides.
func NewRig(proto *Skeleton, b Behavior, opts ...Option) (*Rig, error) {
	skel := proto.Clone()
	a := NewAnimator(skel, opts...)
	if b.Setup != nil {
		if err := b.Setup(a); err != nil {
			return nil, err
		}
	}
	for _, bind := range b.Procedural {
		a.AddProcedural(bind(skel))
	}
	return &Rig{skel: skel, animator: a, behavior: b}, nil
}

// Skeleton returns the rig's skeleton.
func (r *Rig) Skeleton() *Skeleton {
	return r.skel
}

// Animator returns the rig's animator.
func (r *Rig) Animator() *Animator {
	return r.animator
}

// Behavior returns the behavior driving the rig.
func (r *Rig) Behavior() Behavior {
	return r.behavior
}

// Update selects layers from in and resolves the pose for now.
// Extra overrides are applied after the behavior's procedural ones.
func (r *Rig) Update(now float32, in Inputs, overrides ...Override) {
	if r.behavior.Select != nil {
		r.behavior.Select(r.animator, now, in)
	}
	f := Frame{Now: now, Inputs: in, Overrides: overrides}
	if r.behavior.Visibility != nil {
		f.Visibility = r.behavior.Visibility(r.skel, in)
	}
	r.animator.Resolve(f)
}
