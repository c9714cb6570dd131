package assets

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/creaturerig/pkg/anim"
	"github.com/Faultbox/creaturerig/pkg/math"
)

// SkeletonDoc is the YAML form of a skeleton. Rotations are in degrees when
// Degrees is set, radians otherwise.
type SkeletonDoc struct {
	Name    string  `yaml:"name" json:"name"`
	Degrees bool    `yaml:"degrees,omitempty" json:"degrees,omitempty"`
	Root    BoneDoc `yaml:"root" json:"root"`
}

// BoneDoc is one bone and its children. A missing scale means unit scale.
type BoneDoc struct {
	Name      string     `yaml:"name" json:"name"`
	Translate [3]float32 `yaml:"translate,flow" json:"translate"`
	Rotate    [3]float32 `yaml:"rotate,flow" json:"rotate"`
	Scale     [3]float32 `yaml:"scale,flow" json:"scale"`
	Hidden    bool       `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	Children  []BoneDoc  `yaml:"children,omitempty" json:"children,omitempty"`
}

// ClipFile holds one or more clips.
type ClipFile struct {
	Clips []ClipDoc `yaml:"clips"`
}

// ClipDoc is the YAML form of a clip.
type ClipDoc struct {
	Name     string       `yaml:"name"`
	Length   float32      `yaml:"length"`
	Loop     bool         `yaml:"loop,omitempty"`
	Degrees  bool         `yaml:"degrees,omitempty"`
	Channels []ChannelDoc `yaml:"channels"`
}

// ChannelDoc is one animated bone property. Curve is the default for keys
// that do not name their own.
type ChannelDoc struct {
	Bone  string   `yaml:"bone"`
	Kind  string   `yaml:"kind"`
	Curve string   `yaml:"curve,omitempty"`
	Keys  []KeyDoc `yaml:"keys"`
}

// KeyDoc is one keyframe.
type KeyDoc struct {
	T     float32    `yaml:"t"`
	V     [3]float32 `yaml:"v,flow"`
	Curve string     `yaml:"curve,omitempty"`
}

// ParseSkeleton decodes a skeleton document and builds the skeleton.
func ParseSkeleton(data []byte) (*anim.Skeleton, error) {
	var doc SkeletonDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding skeleton")
	}
	return doc.Build()
}

// Build converts the document to a skeleton.
func (d *SkeletonDoc) Build() (*anim.Skeleton, error) {
	if d.Name == "" {
		return nil, errors.New("skeleton name is empty")
	}
	s, err := anim.NewSkeleton(d.Name, d.Root.def(d.Degrees))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return s, nil
}

func (b *BoneDoc) def(degrees bool) anim.BoneDef {
	rot := math.FromArray(b.Rotate)
	if degrees {
		rot = radians(rot)
	}
	def := anim.BoneDef{
		Name: b.Name,
		Rest: anim.Pose{
			Translate: math.FromArray(b.Translate),
			Rotate:    rot,
			Scale:     math.FromArray(b.Scale),
			Visible:   !b.Hidden,
		},
	}
	for i := range b.Children {
		def.Children = append(def.Children, b.Children[i].def(degrees))
	}
	return def
}

// ParseClips decodes a clip file and builds every clip in it.
func ParseClips(data []byte) ([]*anim.Clip, error) {
	var f ClipFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decoding clips")
	}
	clips := make([]*anim.Clip, 0, len(f.Clips))
	for i := range f.Clips {
		c, err := f.Clips[i].Build()
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, nil
}

// Build converts the document to a validated clip.
func (d *ClipDoc) Build() (*anim.Clip, error) {
	channels := make([]anim.Channel, 0, len(d.Channels))
	for _, cd := range d.Channels {
		kind, err := anim.ParseKind(cd.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "clip %q bone %q", d.Name, cd.Bone)
		}
		ch := anim.Channel{Bone: cd.Bone, Kind: kind, Keys: make([]anim.Keyframe, 0, len(cd.Keys))}
		for _, kd := range cd.Keys {
			name := kd.Curve
			if name == "" {
				name = cd.Curve
			}
			curve, err := anim.ParseCurve(name)
			if err != nil {
				return nil, errors.Wrapf(err, "clip %q bone %q", d.Name, cd.Bone)
			}
			v := math.FromArray(kd.V)
			if d.Degrees && kind == anim.KindRotate {
				v = radians(v)
			}
			ch.Keys = append(ch.Keys, anim.Key(kd.T, v, curve))
		}
		channels = append(channels, ch)
	}

	c, err := anim.NewClip(d.Name, d.Length, d.Loop, channels...)
	if err != nil {
		return nil, errors.Wrapf(err, "clip %q", d.Name)
	}
	return c, nil
}

// DocFromSkeleton converts a skeleton's rest pose back to a document, in radians.
func DocFromSkeleton(s *anim.Skeleton) SkeletonDoc {
	docs := make([]BoneDoc, s.Len())
	for i := s.Len() - 1; i >= 0; i-- {
		b := s.Bone(i)
		docs[i] = BoneDoc{
			Name:      b.Name,
			Translate: b.Rest.Translate.Array(),
			Rotate:    b.Rest.Rotate.Array(),
			Scale:     b.Rest.Scale.Array(),
			Hidden:    !b.Rest.Visible,
		}
		for _, c := range b.Children {
			docs[i].Children = append(docs[i].Children, docs[c])
		}
	}
	return SkeletonDoc{Name: s.Name(), Root: docs[0]}
}

func radians(v math.Vec3) math.Vec3 {
	return math.Vec3{X: math.Radians(v.X), Y: math.Radians(v.Y), Z: math.Radians(v.Z)}
}
