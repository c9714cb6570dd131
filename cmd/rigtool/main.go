// rigtool is a CLI utility for inspecting skeletons and clips.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/creaturerig/internal/assets"
	"github.com/Faultbox/creaturerig/internal/config"
	"github.com/Faultbox/creaturerig/internal/export"
	"github.com/Faultbox/creaturerig/internal/preview"
	"github.com/Faultbox/creaturerig/pkg/anim"
	"github.com/Faultbox/creaturerig/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "clips":
		cmdClips(args)
	case "sample", "pose":
		cmdSample(args)
	case "export":
		cmdExport(args)
	case "preview":
		cmdPreview(args)
	case "check":
		cmdCheck(args)
	case "dump":
		cmdDump(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rigtool - skeleton and clip utility

Usage:
  rigtool <command> [options]

Commands:
  info <skeleton.yaml>                   Show the bone tree
  clips <clips.yaml>                     List clips and channels
  sample [pose flags] <skeleton.yaml>    Print the resolved pose
  export [pose flags] <skeleton.yaml> <out.gltf|out.glb>
                                         Write the pose as glTF nodes
  preview [pose flags] [-o out.webp] <skeleton.yaml>
                                         Render a stick-figure preview
  check [dir]                            Load and validate an asset tree
  dump <skeleton.yaml|clips.yaml>        Dump the parsed structure
  config [path]                          Write the default config

Pose flags:
  -clips <file>   Clip file
  -clip <name>    Clip to apply
  -t <seconds>    Sample time

Examples:
  rigtool info assets/skeletons/quadruped.yaml
  rigtool sample -clips assets/clips/locomotion.yaml -clip walk -t 0.25 assets/skeletons/quadruped.yaml
  rigtool preview -clips assets/clips/actions.yaml -clip bite -t 0.2 -o bite.webp assets/skeletons/quadruped.yaml`)
}

func fail(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func loadSkeleton(path string) *anim.Skeleton {
	data, err := os.ReadFile(path)
	if err != nil {
		fail("Error: %v", err)
	}
	s, err := assets.ParseSkeleton(data)
	if err != nil {
		fail("Error: %v", err)
	}
	return s
}

func loadClips(path string) []*anim.Clip {
	data, err := os.ReadFile(path)
	if err != nil {
		fail("Error: %v", err)
	}
	clips, err := assets.ParseClips(data)
	if err != nil {
		fail("Error: %v", err)
	}
	return clips
}

type poseFlags struct {
	clips *string
	clip  *string
	t     *float64
}

func addPoseFlags(fs *flag.FlagSet) poseFlags {
	return poseFlags{
		clips: fs.String("clips", "", "Clip file"),
		clip:  fs.String("clip", "", "Clip name"),
		t:     fs.Float64("t", 0, "Sample time in seconds"),
	}
}

// apply poses s with the selected clip, if any.
func (p poseFlags) apply(s *anim.Skeleton) {
	if *p.clip == "" {
		return
	}
	if *p.clips == "" {
		fail("-clip needs -clips")
	}
	lib, err := anim.NewLibrary(loadClips(*p.clips)...)
	if err != nil {
		fail("Error: %v", err)
	}
	clip, ok := lib.Get(*p.clip)
	if !ok {
		fail("Clip not found: %s (have %s)", *p.clip, strings.Join(lib.Names(), ", "))
	}

	a := anim.NewAnimator(s)
	if _, err := a.AddLayer(*p.clip, clip); err != nil {
		fail("Error: %v", err)
	}
	a.Start(*p.clip, 0)
	a.Resolve(anim.Frame{Now: float32(*p.t)})
	if n := a.Missing(); n > 0 {
		fmt.Fprintf(os.Stderr, "(%d channel(s) target missing bones)\n", n)
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fail("Usage: rigtool info <skeleton.yaml>")
	}
	s := loadSkeleton(args[0])

	fmt.Printf("Skeleton: %s\n", s.Name())
	fmt.Printf("Bones:    %d\n", s.Len())
	fmt.Println()

	depth := make([]int, s.Len())
	for i := 0; i < s.Len(); i++ {
		b := s.Bone(i)
		if b.Parent >= 0 {
			depth[i] = depth[b.Parent] + 1
		}
		hidden := ""
		if !b.Rest.Visible {
			hidden = " (hidden)"
		}
		fmt.Printf("  %3d %s%s%s\n", i, strings.Repeat("  ", depth[i]), b.Name, hidden)
	}
}

func cmdClips(args []string) {
	if len(args) < 1 {
		fail("Usage: rigtool clips <clips.yaml>")
	}
	for _, c := range loadClips(args[0]) {
		mode := "once"
		if c.Looping() {
			mode = "loop"
		}
		fmt.Printf("%-12s %6.2fs %s\n", c.Name(), c.Length(), mode)
		for _, ch := range c.Channels() {
			fmt.Printf("    %-10s %-9s %d keys\n", ch.Bone, ch.Kind, len(ch.Keys))
		}
	}
}

func cmdSample(args []string) {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	pose := addPoseFlags(fs)
	degrees := fs.Bool("deg", false, "Print rotations in degrees")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: rigtool sample [-clips f -clip name -t sec] <skeleton.yaml>")
	}
	s := loadSkeleton(fs.Arg(0))
	pose.apply(s)

	world := s.WorldTransforms(nil)
	vis := s.Visibility(nil)
	fmt.Printf("%-10s %-24s %-24s %-24s %s\n", "bone", "rotate", "scale", "world", "visible")
	for i := 0; i < s.Len(); i++ {
		b := s.Bone(i)
		r := b.Current.Rotate
		if *degrees {
			r = math.Vec3{X: math.Degrees(r.X), Y: math.Degrees(r.Y), Z: math.Degrees(r.Z)}
		}
		fmt.Printf("%-10s %-24s %-24s %-24s %v\n", b.Name, vec(r), vec(b.Current.Scale), vec(world[i].Translation()), vis[i])
	}
}

func vec(v math.Vec3) string {
	return fmt.Sprintf("(%.3f %.3f %.3f)", v.X, v.Y, v.Z)
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	pose := addPoseFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fail("Usage: rigtool export [-clips f -clip name -t sec] <skeleton.yaml> <out.gltf|out.glb>")
	}
	s := loadSkeleton(fs.Arg(0))
	pose.apply(s)

	if err := export.Save(fs.Arg(1), s); err != nil {
		fail("Error: %v", err)
	}
	fmt.Printf("Exported %d nodes to %s\n", s.Len(), fs.Arg(1))
}

func cmdPreview(args []string) {
	def := config.Default().Preview

	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	pose := addPoseFlags(fs)
	out := fs.String("o", "", "Output file (default <skeleton>.webp)")
	width := fs.Int("w", def.Width, "Image width")
	height := fs.Int("h", def.Height, "Image height")
	scale := fs.Float64("scale", float64(def.Scale), "Pixels per unit")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: rigtool preview [-clips f -clip name -t sec] [-o out.webp] <skeleton.yaml>")
	}
	s := loadSkeleton(fs.Arg(0))
	pose.apply(s)

	path := *out
	if path == "" {
		path = strings.TrimSuffix(filepath.Base(fs.Arg(0)), filepath.Ext(fs.Arg(0))) + ".webp"
	}
	format := "webp"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		format = "png"
	}

	cfg := config.PreviewConfig{Width: *width, Height: *height, Scale: float32(*scale), Format: format}
	img := preview.Render(s, cfg)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fail("Error: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		fail("Error: %v", err)
	}
	if err := preview.Encode(f, img, format); err != nil {
		f.Close()
		fail("Error: %v", err)
	}
	if err := f.Close(); err != nil {
		fail("Error: %v", err)
	}
	fmt.Printf("Wrote %dx%d %s preview to %s\n", cfg.Width, cfg.Height, format, path)
}

func cmdCheck(args []string) {
	cfg := config.Default()
	if len(args) > 0 {
		cfg.Assets.Dir = args[0]
	}

	m := assets.NewDirManager(cfg.Assets.Dir, nil)
	defer m.Close()
	cat, err := m.LoadCatalog(cfg.Assets)
	if err != nil {
		fail("Error: %v", err)
	}

	fmt.Printf("Assets:      %s\n", cfg.Assets.Dir)
	fmt.Printf("Skeletons:   %s\n", strings.Join(cat.SkeletonNames(), ", "))
	fmt.Printf("Clips:       %s\n", strings.Join(cat.Library.Names(), ", "))
	fmt.Printf("Controllers: %d\n", len(cat.Controllers))

	// Report channels that no skeleton can bind; they are skipped at runtime.
	for _, name := range cat.Library.Names() {
		for _, ch := range cat.Library.MustGet(name).Channels() {
			found := false
			for _, s := range cat.Skeletons {
				if _, ok := s.Index(ch.Bone); ok {
					found = true
					break
				}
			}
			if !found {
				fmt.Printf("  warning: clip %s targets unknown bone %s\n", name, ch.Bone)
			}
		}
	}
}

func cmdDump(args []string) {
	if len(args) < 1 {
		fail("Usage: rigtool dump <file.yaml>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fail("Error: %v", err)
	}

	cfg := spew.NewDefaultConfig()
	cfg.DisableCapacities = true
	cfg.DisablePointerAddresses = true

	if clips, err := assets.ParseClips(data); err == nil && len(clips) > 0 {
		for _, c := range clips {
			fmt.Printf("== %s\n", c.Name())
			cfg.Fdump(os.Stdout, c.Channels())
		}
		return
	}
	s, err := assets.ParseSkeleton(data)
	if err != nil {
		fail("Error: not a skeleton or clip file: %v", err)
	}
	cfg.Fdump(os.Stdout, assets.DocFromSkeleton(s))
}

func cmdConfig(args []string) {
	path := filepath.Join(config.ConfigDir(), "config.yaml")
	if len(args) > 0 {
		path = args[0]
	}
	if err := config.Default().SaveTo(path); err != nil {
		fail("Error: %v", err)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}
