// Package anim implements hierarchical skeletal animation: bone trees, keyframe clips,
// per-entity playback state and the per-frame pose resolution pipeline.
//
// A frame is resolved in four layers, in order:
//
//  1. every bone is reset to its rest pose;
//  2. each started playback adds its sampled translation and rotation and
//     multiplies its sampled scale into the bones it targets, in layer order;
//  3. procedural overrides run, then the frame's explicit overrides;
//  4. visibility overrides are applied.
//
// Clips and Libraries are immutable and may be shared between goroutines.
// Skeletons, Playbacks and Animators belong to a single entity and are not
// safe for concurrent use.
package anim

import "github.com/Faultbox/creaturerig/pkg/math"

// Pose is a bone's local transform plus its visibility flag.
// Rotate holds Euler angles in radians, composed as Rx * Ry * Rz.
type Pose struct {
	Translate math.Vec3
	Rotate    math.Vec3
	Scale     math.Vec3
	Visible   bool
}

// RestPose returns the identity pose: no offset, no rotation, unit scale, visible.
func RestPose() Pose {
	return Pose{Scale: math.One, Visible: true}
}

// At returns a visible pose translated to the pivot p.
func At(p math.Vec3) Pose {
	pose := RestPose()
	pose.Translate = p
	return pose
}

// Local builds the local transform Translate * Rotate(X,Y,Z) * Scale.
func (p Pose) Local() math.Mat4 {
	return math.Compose(p.Translate, p.Rotate, p.Scale)
}

// Component returns the translate, rotate or scale vector selected by kind.
func (p *Pose) Component(kind Kind) *math.Vec3 {
	switch kind {
	case KindTranslate:
		return &p.Translate
	case KindRotate:
		return &p.Rotate
	default:
		return &p.Scale
	}
}
