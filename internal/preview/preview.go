// Package preview rasterizes a posed skeleton as a flat stick figure.
//
// The view is orthographic along -Z: world X maps to the image X axis and
// world Y points up. The figure is centered on the bounding box of all
// joints, hidden ones included, so toggling visibility never shifts the frame.
package preview

import (
	"image"
	"image/color"
	"image/png"
	"io"
	stdmath "math"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/Faultbox/creaturerig/internal/config"
	"github.com/Faultbox/creaturerig/pkg/anim"
)

// Colors used by Render.
var (
	Background = color.NRGBA{0x20, 0x22, 0x28, 0xff}
	BoneColor  = color.NRGBA{0xe8, 0xd0, 0x9a, 0xff}
	JointColor = color.NRGBA{0xd0, 0x50, 0x40, 0xff}
)

const (
	lineWidth = 3
	jointSize = 4
)

// Point is a projected joint position in pixels.
type Point struct {
	X, Y float32
}

// Project returns the pixel position of every joint for an image of the
// given size and scale.
func Project(s *anim.Skeleton, width, height int, scale float32) []Point {
	world := s.WorldTransforms(nil)
	if len(world) == 0 {
		return nil
	}

	minX, minY := float32(stdmath.MaxFloat32), float32(stdmath.MaxFloat32)
	maxX, maxY := -minX, -minY
	for _, m := range world {
		p := m.Translation()
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	cx, cy := (minX+maxX)/2, (minY+maxY)/2

	pts := make([]Point, len(world))
	for i, m := range world {
		p := m.Translation()
		pts[i] = Point{
			X: float32(width)/2 + (p.X-cx)*scale,
			Y: float32(height)/2 - (p.Y-cy)*scale,
		}
	}
	return pts
}

// Render draws the skeleton's current pose. Each visible non-root bone is a
// segment from its parent joint to its own; every visible joint gets a dot.
func Render(s *anim.Skeleton, cfg config.PreviewConfig) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	pts := Project(s, cfg.Width, cfg.Height, cfg.Scale)
	vis := s.Visibility(nil)

	r := vector.NewRasterizer(cfg.Width, cfg.Height)
	for i, p := range pts {
		parent := s.Bone(i).Parent
		if !vis[i] || parent < 0 {
			continue
		}
		segment(r, pts[parent], p, lineWidth/2.0)
	}
	r.Draw(dst, dst.Bounds(), image.NewUniform(BoneColor), image.Point{})

	r.Reset(cfg.Width, cfg.Height)
	for i, p := range pts {
		if vis[i] {
			square(r, p, jointSize/2.0)
		}
	}
	r.Draw(dst, dst.Bounds(), image.NewUniform(JointColor), image.Point{})
	return dst
}

// segment adds a quad of half-width hw around the line a-b.
func segment(r *vector.Rasterizer, a, b Point, hw float32) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := float32(stdmath.Hypot(float64(dx), float64(dy)))
	if l < 1e-3 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw

	r.MoveTo(a.X+nx, a.Y+ny)
	r.LineTo(b.X+nx, b.Y+ny)
	r.LineTo(b.X-nx, b.Y-ny)
	r.LineTo(a.X-nx, a.Y-ny)
	r.ClosePath()
}

func square(r *vector.Rasterizer, c Point, h float32) {
	r.MoveTo(c.X-h, c.Y-h)
	r.LineTo(c.X+h, c.Y-h)
	r.LineTo(c.X+h, c.Y+h)
	r.LineTo(c.X-h, c.Y+h)
	r.ClosePath()
}

// Thumbnail scales img to fit within w x h, keeping its aspect ratio.
func Thumbnail(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	ratio := min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	tw := max(1, int(stdmath.Round(float64(b.Dx())*ratio)))
	th := max(1, int(stdmath.Round(float64(b.Dy())*ratio)))

	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Encode writes img as webp or png.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "webp":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return errors.Wrap(err, "encoding webp")
		}
	case "png":
		if err := png.Encode(w, img); err != nil {
			return errors.Wrap(err, "encoding png")
		}
	default:
		return errors.Errorf("unsupported preview format %q", format)
	}
	return nil
}

// ContentType returns the MIME type for a preview format.
func ContentType(format string) string {
	if format == "png" {
		return "image/png"
	}
	return "image/webp"
}
