package ecs

import (
	"testing"

	"github.com/yohamta/donburi"

	"github.com/Faultbox/creaturerig/internal/controller"
	"github.com/Faultbox/creaturerig/pkg/anim"
	"github.com/Faultbox/creaturerig/pkg/math"
)

func newController(t *testing.T) *controller.Controller {
	t.Helper()
	proto, err := anim.NewSkeleton("critter", anim.BoneDef{
		Name: "body",
		Rest: anim.RestPose(),
		Children: []anim.BoneDef{
			{Name: "jaw", Rest: anim.At(math.Vec3{Z: -1})},
			{Name: "leg", Rest: anim.At(math.Vec3{Y: -1})},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	lib, err := anim.NewLibrary(
		anim.MustClip("bite", 0.4, false, anim.Channel{Bone: "jaw", Kind: anim.KindRotate, Keys: []anim.Keyframe{
			anim.Key(0, math.Vec3{}, anim.CurveLinear),
			anim.Key(0.2, math.Vec3{X: 15}, anim.CurveLinear),
			anim.Key(0.4, math.Vec3{}, anim.CurveLinear),
		}}),
		anim.MustClip("walk", 1, true, anim.Channel{Bone: "leg", Kind: anim.KindRotate, Keys: []anim.Keyframe{
			anim.Key(0, math.Vec3{}, anim.CurveLinear),
			anim.Key(0.5, math.Vec3{X: 20}, anim.CurveLinear),
			anim.Key(1, math.Vec3{}, anim.CurveLinear),
		}}),
	)
	if err != nil {
		t.Fatal(err)
	}
	def := &controller.Definition{
		Name: "critter",
		Slots: []controller.Slot{
			{Name: "walk", Clip: "walk", When: controller.Condition{MinSpeed: 0.1}},
			{Name: "bite", Clip: "bite", When: controller.Condition{Flag: "attacking"}},
		},
	}
	c, err := controller.New(def, lib, proto)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSystemUpdate(t *testing.T) {
	w := donburi.NewWorld()
	sys := NewSystem(nil)

	a := newController(t)
	b := newController(t)
	Spawn(w, "a", a, anim.Inputs{Speed: 1})
	Spawn(w, "b", b, anim.Inputs{})

	if n := sys.Update(w, 0); n != 2 {
		t.Fatalf("Update resolved %d rigs, want 2", n)
	}
	sys.Update(w, 0.25)

	leg := a.Skeleton().Handle("leg")
	if got := a.Skeleton().Pose(leg).Rotate.X; got != 10 {
		t.Errorf("walking rig leg = %v, want 10", got)
	}
	if !b.Skeleton().AtRest() {
		t.Error("idle rig should be at rest")
	}
	if sys.Count(w) != 2 {
		t.Errorf("Count = %d, want 2", sys.Count(w))
	}
}

func TestClipFinishedPublishedOnce(t *testing.T) {
	w := donburi.NewWorld()
	sys := NewSystem(nil)

	var got []ClipFinished
	ClipFinishedEvent.Subscribe(w, func(_ donburi.World, e ClipFinished) {
		got = append(got, e)
	})

	attacking := anim.Inputs{Flags: map[string]bool{"attacking": true}}
	e := Spawn(w, "biter", newController(t), attacking)

	for _, now := range []float32{0, 0.2, 0.5, 0.6, 1} {
		sys.Update(w, now)
	}
	if len(got) != 1 {
		t.Fatalf("expected one finish event, got %d", len(got))
	}
	if got[0].Slot != "bite" || got[0].Rig != "biter" || got[0].Entity != e || got[0].Time != 0.5 {
		t.Errorf("unexpected event %+v", got[0])
	}

	// A new attack after the flag drops finishes again.
	SetInputs(w, e, anim.Inputs{})
	sys.Update(w, 2)
	SetInputs(w, e, attacking)
	sys.Update(w, 3)
	sys.Update(w, 4)
	if len(got) != 2 {
		t.Errorf("expected a second finish event, got %d", len(got))
	}
}

func TestFindAndDespawn(t *testing.T) {
	w := donburi.NewWorld()
	sys := NewSystem(nil)

	Spawn(w, "a", newController(t), anim.Inputs{})
	e := Spawn(w, "b", newController(t), anim.Inputs{})

	entry, ok := sys.Find(w, "b")
	if !ok || entry.Entity() != e {
		t.Fatalf("Find(b) = %v, %v", entry, ok)
	}
	if _, ok := sys.Find(w, "z"); ok {
		t.Error("Find(z) should miss")
	}

	sys.Despawn(w, e)
	if sys.Count(w) != 1 {
		t.Errorf("Count after despawn = %d, want 1", sys.Count(w))
	}
	if SetInputs(w, e, anim.Inputs{}) {
		t.Error("SetInputs on a removed entity should fail")
	}
}

func TestRebaseKeepsFinishHistory(t *testing.T) {
	w := donburi.NewWorld()
	sys := NewSystem(nil)

	count := 0
	ClipFinishedEvent.Subscribe(w, func(_ donburi.World, e ClipFinished) {
		count++
	})

	attacking := anim.Inputs{Flags: map[string]bool{"attacking": true}, Speed: 1}
	c := newController(t)
	Spawn(w, "biter", c, attacking)

	sys.Update(w, 3600)
	sys.Update(w, 3600.5)
	if count != 1 {
		t.Fatalf("expected one finish event, got %d", count)
	}

	sys.Rebase(w, 3600)
	sys.Update(w, 0.75)
	if count != 1 {
		t.Errorf("rebase republished a finish event, count = %d", count)
	}
	leg := c.Skeleton().Handle("leg")
	if got := c.Skeleton().Pose(leg).Rotate.X; got != 10 {
		t.Errorf("walking leg after rebase = %v, want 10", got)
	}
}
