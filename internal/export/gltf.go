// Package export writes resolved skeleton poses as glTF node hierarchies.
package export

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/creaturerig/pkg/anim"
	"github.com/Faultbox/creaturerig/pkg/math"
)

var (
	axisX = mgl32.Vec3{1, 0, 0}
	axisY = mgl32.Vec3{0, 1, 0}
	axisZ = mgl32.Vec3{0, 0, 1}
)

// Quat converts Euler angles in radians, composed as Rx * Ry * Rz, to a quaternion.
func Quat(r math.Vec3) mgl32.Quat {
	q := mgl32.QuatRotate(r.X, axisX)
	q = q.Mul(mgl32.QuatRotate(r.Y, axisY))
	q = q.Mul(mgl32.QuatRotate(r.Z, axisZ))
	return q.Normalize()
}

// Document builds a glTF document with one node per bone carrying the
// bone's current local transform. Bones whose effective visibility is off
// are marked with a "visible": false extra.
func Document(s *anim.Skeleton) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "creaturerig"

	vis := s.Visibility(nil)
	doc.Nodes = make([]*gltf.Node, s.Len())
	for i := 0; i < s.Len(); i++ {
		b := s.Bone(i)
		q := Quat(b.Current.Rotate)
		node := &gltf.Node{
			Name:        b.Name,
			Translation: b.Current.Translate.Array(),
			Rotation:    q.V.Vec4(q.W),
			Scale:       b.Current.Scale.Array(),
		}
		for _, c := range b.Children {
			node.Children = append(node.Children, uint32(c))
		}
		if !vis[i] {
			node.Extras = map[string]interface{}{"visible": false}
		}
		doc.Nodes[i] = node

		if b.Parent < 0 {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(i))
		}
	}
	doc.Scenes[0].Name = s.Name()
	return doc
}

// Write encodes the skeleton's current pose to w, as GLB when binary is set.
func Write(w io.Writer, s *anim.Skeleton, binary bool) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	if err := enc.Encode(Document(s)); err != nil {
		return errors.Wrapf(err, "encoding %s", s.Name())
	}
	return nil
}

// Save writes the pose to path; a .glb extension selects the binary form.
func Save(path string, s *anim.Skeleton) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}
	defer f.Close()

	binary := strings.EqualFold(filepath.Ext(path), ".glb")
	if err := Write(f, s, binary); err != nil {
		return err
	}
	return f.Close()
}
