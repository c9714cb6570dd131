package anim

import (
	"fmt"

	"github.com/Faultbox/creaturerig/pkg/math"
)

// BoneDef is the authored description of a bone and its subtree.
type BoneDef struct {
	Name     string
	Rest     Pose
	Children []BoneDef
}

// Bone is one node of a Skeleton's bone arena.
// Bones are stored in depth-first order, so Parent is always lower than the
// bone's own index. The root's Parent is -1.
type Bone struct {
	Name     string
	Parent   int
	Children []int
	Rest     Pose
	Current  Pose
}

// Skeleton owns a tree of bones addressed by index.
// The name index is built once at construction and never changes.
type Skeleton struct {
	name        string
	bones       []Bone
	index       map[string]int
	bindInverse []math.Mat4
}

// NewSkeleton flattens the bone tree rooted at root into an arena.
// Every bone's current pose starts at its rest pose. A rest pose with a zero
// scale vector is treated as unit scale.
func NewSkeleton(name string, root BoneDef) (*Skeleton, error) {
	if root.Name == "" && len(root.Children) == 0 {
		return nil, ErrNoBones
	}

	s := &Skeleton{
		name:  name,
		index: make(map[string]int),
	}
	if err := s.add(root, -1); err != nil {
		return nil, fmt.Errorf("skeleton %q: %w", name, err)
	}

	// Bind pose inverses are static asset data, not per-frame state.
	rest := s.restWorld()
	s.bindInverse = make([]math.Mat4, len(rest))
	for i := range rest {
		s.bindInverse[i] = rest[i].Inverse()
	}
	return s, nil
}

func (s *Skeleton) add(def BoneDef, parent int) error {
	if def.Name == "" {
		return ErrEmptyBoneName
	}
	if _, dup := s.index[def.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateBone, def.Name)
	}

	rest := def.Rest
	if rest.Scale == (math.Vec3{}) {
		rest.Scale = math.One
	}

	idx := len(s.bones)
	s.index[def.Name] = idx
	s.bones = append(s.bones, Bone{
		Name:    def.Name,
		Parent:  parent,
		Rest:    rest,
		Current: rest,
	})
	if parent >= 0 {
		s.bones[parent].Children = append(s.bones[parent].Children, idx)
	}

	for _, child := range def.Children {
		if err := s.add(child, idx); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent skeleton sharing the immutable name index.
// Each entity instance should own its own clone.
func (s *Skeleton) Clone() *Skeleton {
	bones := make([]Bone, len(s.bones))
	copy(bones, s.bones)
	for i := range bones {
		bones[i].Current = bones[i].Rest
	}
	return &Skeleton{
		name:        s.name,
		bones:       bones,
		index:       s.index,
		bindInverse: s.bindInverse,
	}
}

// Name returns the skeleton name.
func (s *Skeleton) Name() string {
	return s.name
}

// Len returns the number of bones.
func (s *Skeleton) Len() int {
	return len(s.bones)
}

// Bone returns the bone at index i.
func (s *Skeleton) Bone(i int) *Bone {
	return &s.bones[i]
}

// Index returns the arena index of the named bone.
func (s *Skeleton) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Handle returns the arena index of the named bone, or -1 when absent.
// Procedural overrides store handles and skip negative ones.
func (s *Skeleton) Handle(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Names returns bone names in arena order.
func (s *Skeleton) Names() []string {
	names := make([]string, len(s.bones))
	for i := range s.bones {
		names[i] = s.bones[i].Name
	}
	return names
}

// Pose returns the current pose of bone i for in-place modification.
func (s *Skeleton) Pose(i int) *Pose {
	return &s.bones[i].Current
}

// Reset restores every bone's current pose to its rest pose.
func (s *Skeleton) Reset() {
	for i := range s.bones {
		s.bones[i].Current = s.bones[i].Rest
	}
}

// AtRest reports whether every bone is in its rest pose.
func (s *Skeleton) AtRest() bool {
	for i := range s.bones {
		if s.bones[i].Current != s.bones[i].Rest {
			return false
		}
	}
	return true
}

// WorldTransforms composes current poses root to leaf and writes one world
// matrix per bone into dst, growing it if needed. The result is recomputed on
// every call.
func (s *Skeleton) WorldTransforms(dst []math.Mat4) []math.Mat4 {
	if cap(dst) < len(s.bones) {
		dst = make([]math.Mat4, len(s.bones))
	}
	dst = dst[:len(s.bones)]

	for i := range s.bones {
		b := &s.bones[i]
		local := b.Current.Local()
		if b.Parent < 0 {
			dst[i] = local
		} else {
			dst[i] = dst[b.Parent].Mul(local)
		}
	}
	return dst
}

// SkinningTransforms returns world * inverse(rest world) per bone, the
// matrices a skinned mesh needs to move bind-pose vertices.
func (s *Skeleton) SkinningTransforms(dst []math.Mat4) []math.Mat4 {
	dst = s.WorldTransforms(dst)
	for i := range dst {
		dst[i] = dst[i].Mul(s.bindInverse[i])
	}
	return dst
}

// Visible reports the bone's own visibility flag.
func (s *Skeleton) Visible(i int) bool {
	return s.bones[i].Current.Visible
}

// Visibility writes the effective visibility of each bone into dst: a bone is
// drawn only if it and all of its ancestors are visible.
func (s *Skeleton) Visibility(dst []bool) []bool {
	if cap(dst) < len(s.bones) {
		dst = make([]bool, len(s.bones))
	}
	dst = dst[:len(s.bones)]

	for i := range s.bones {
		b := &s.bones[i]
		dst[i] = b.Current.Visible && (b.Parent < 0 || dst[b.Parent])
	}
	return dst
}

func (s *Skeleton) restWorld() []math.Mat4 {
	out := make([]math.Mat4, len(s.bones))
	for i := range s.bones {
		b := &s.bones[i]
		local := b.Rest.Local()
		if b.Parent < 0 {
			out[i] = local
		} else {
			out[i] = out[b.Parent].Mul(local)
		}
	}
	return out
}
