// Package ecs runs rigs as donburi entities: each entity carries a
// controller and its latest inputs, and a System resolves them every tick.
package ecs

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
	"go.uber.org/zap"

	"github.com/Faultbox/creaturerig/internal/controller"
	"github.com/Faultbox/creaturerig/pkg/anim"
)

// RigData is the animated part of an entity.
type RigData struct {
	Name       string
	Controller *controller.Controller
}

// Rig is the component holding an entity's controller.
var Rig = donburi.NewComponentType[RigData]()

// Input is the component holding the inputs for the next resolve.
var Input = donburi.NewComponentType[anim.Inputs]()

// ClipFinished is published once each time a one-shot slot completes.
type ClipFinished struct {
	Entity donburi.Entity
	Rig    string
	Slot   string
	Time   float32
}

// ClipFinishedEvent carries ClipFinished events. Subscribers run when the
// System processes events at the end of Update.
var ClipFinishedEvent = events.NewEventType[ClipFinished]()

// Spawn creates an entity driven by c with initial inputs in.
func Spawn(w donburi.World, name string, c *controller.Controller, in anim.Inputs) donburi.Entity {
	e := w.Create(Rig, Input)
	entry := w.Entry(e)
	Rig.SetValue(entry, RigData{Name: name, Controller: c})
	Input.SetValue(entry, in)
	return e
}

// SetInputs replaces the inputs an entity uses on the next Update.
func SetInputs(w donburi.World, e donburi.Entity, in anim.Inputs) bool {
	if !w.Valid(e) {
		return false
	}
	Input.SetValue(w.Entry(e), in)
	return true
}

type finishKey struct {
	entity donburi.Entity
	slot   string
}

// System resolves every rig entity.
type System struct {
	query    *donburi.Query
	log      *zap.Logger
	reported map[finishKey]float32
}

// NewSystem creates a rig system. A nil logger discards output.
func NewSystem(log *zap.Logger) *System {
	if log == nil {
		log = zap.NewNop()
	}
	return &System{
		query:    donburi.NewQuery(filter.Contains(Rig, Input)),
		log:      log,
		reported: make(map[finishKey]float32),
	}
}

// Update resolves all rigs at now, publishes completed one-shots and
// processes pending ClipFinished events. It returns the number of rigs resolved.
func (s *System) Update(w donburi.World, now float32) int {
	n := 0
	s.query.Each(w, func(entry *donburi.Entry) {
		rig := Rig.Get(entry)
		in := Input.Get(entry)
		c := rig.Controller
		c.Update(now, *in)
		n++

		for _, slot := range c.Finished(now) {
			start := c.Rig().Animator().Layer(slot).StartTime()
			key := finishKey{entry.Entity(), slot}
			if at, ok := s.reported[key]; ok && at == start {
				continue
			}
			s.reported[key] = start
			s.log.Debug("clip finished", zap.String("rig", rig.Name), zap.String("slot", slot))
			ClipFinishedEvent.Publish(w, ClipFinished{
				Entity: entry.Entity(),
				Rig:    rig.Name,
				Slot:   slot,
				Time:   now,
			})
		}
	})
	ClipFinishedEvent.ProcessEvents(w)
	return n
}

// Rebase moves every rig's playback start times back by shift. The caller
// must pass now-shift to later Updates.
func (s *System) Rebase(w donburi.World, shift float32) {
	s.query.Each(w, func(entry *donburi.Entry) {
		Rig.Get(entry).Controller.Rig().Animator().Rebase(shift)
	})
	for k, at := range s.reported {
		s.reported[k] = at - shift
	}
}

// Despawn removes an entity and forgets its finish history.
func (s *System) Despawn(w donburi.World, e donburi.Entity) {
	for k := range s.reported {
		if k.entity == e {
			delete(s.reported, k)
		}
	}
	if w.Valid(e) {
		w.Remove(e)
	}
}

// Find returns the first rig entity with the given name.
func (s *System) Find(w donburi.World, name string) (*donburi.Entry, bool) {
	var found *donburi.Entry
	s.query.Each(w, func(entry *donburi.Entry) {
		if found == nil && Rig.Get(entry).Name == name {
			found = entry
		}
	})
	return found, found != nil
}

// Count returns the number of rig entities.
func (s *System) Count(w donburi.World) int {
	return s.query.Count(w)
}
