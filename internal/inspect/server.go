// Package inspect serves a live view of running rigs over HTTP.
//
// Every controller in the catalog is spawned as a rig entity. The server
// ticks them at the configured rate, exposes poses and previews as JSON and
// images, and streams snapshots to websocket clients.
package inspect

import (
	"context"
	stdmath "math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/yohamta/donburi"
	"go.uber.org/zap"

	"github.com/Faultbox/creaturerig/internal/assets"
	"github.com/Faultbox/creaturerig/internal/config"
	"github.com/Faultbox/creaturerig/internal/controller"
	"github.com/Faultbox/creaturerig/internal/ecs"
	"github.com/Faultbox/creaturerig/pkg/anim"
)

// Server owns the rig world and the HTTP surface over it.
type Server struct {
	cfg config.Config
	cat *assets.Catalog
	log *zap.Logger

	mu       sync.Mutex
	world    donburi.World
	sys      *ecs.System
	rigs     map[string]donburi.Entity
	now      float32
	finished []ecs.ClipFinished
	last     []byte

	clientsMu sync.Mutex
	clients   map[*client]bool
}

// NewServer spawns one rig per controller in cat. A nil logger discards output.
func NewServer(cfg config.Config, cat *assets.Catalog, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		cat:     cat,
		log:     log,
		world:   donburi.NewWorld(),
		sys:     ecs.NewSystem(log.Named("ecs")),
		rigs:    make(map[string]donburi.Entity),
		clients: make(map[*client]bool),
	}
	ecs.ClipFinishedEvent.Subscribe(s.world, s.onFinished)

	names := make([]string, 0, len(cat.Controllers))
	for name := range cat.Controllers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := cat.Controllers[name]
		proto, ok := cat.Skeletons[def.Skeleton]
		if !ok {
			return nil, errors.Errorf("controller %q: unknown skeleton %q", name, def.Skeleton)
		}
		c, err := controller.New(def, cat.Library, proto, anim.WithLogger(log.Named(name)))
		if err != nil {
			return nil, err
		}
		s.rigs[name] = ecs.Spawn(s.world, name, c, anim.Inputs{})
	}
	log.Info("rigs spawned", zap.Int("count", len(s.rigs)))
	return s, nil
}

func (s *Server) onFinished(_ donburi.World, e ecs.ClipFinished) {
	s.finished = append(s.finished, e)
}

// RigNames returns the names of all spawned rigs in sorted order.
func (s *Server) RigNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.rigs)
}

// SetInputs replaces a rig's inputs. It reports false for unknown rigs.
func (s *Server) SetInputs(name string, in anim.Inputs) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rigs[name]
	if !ok {
		return false
	}
	return ecs.SetInputs(s.world, e, in)
}

// Tick resolves every rig at now and broadcasts the result to websocket
// clients, followed by one message per clip that finished during the tick.
func (s *Server) Tick(now float32) {
	s.mu.Lock()
	s.now = now
	s.finished = s.finished[:0]
	s.sys.Update(s.world, now)

	snap, err := encodeMessage(s.snapshotLocked())
	if err != nil {
		s.mu.Unlock()
		s.log.Error("encoding snapshot", zap.Error(err))
		return
	}
	s.last = snap
	msgs := [][]byte{snap}
	for _, f := range s.finished {
		data, err := encodeMessage(finishedMessage(f))
		if err != nil {
			s.log.Error("encoding finish event", zap.Error(err))
			continue
		}
		msgs = append(msgs, data)
	}
	s.mu.Unlock()

	for _, m := range msgs {
		s.broadcast(m)
	}
}

// Rebase moves the rigs' clock back by shift seconds without changing any
// clip's phase. The next Tick must be given a time relative to the new origin.
func (s *Server) Rebase(shift float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sys.Rebase(s.world, shift)
	s.now -= shift
	s.log.Debug("clock rebased", zap.Float32("shift", shift))
}

// rebaseAfter is the animation time, in seconds, after which the clock is
// folded back towards zero to keep float32 times precise.
const rebaseAfter = 3600

// clock turns wall time into animation time.
type clock struct {
	start time.Time
	scale float64
	base  float64 // seconds already folded out
}

// at returns the animation time at t and how far the clock was rebased
// since the previous call, or 0.
func (c *clock) at(t time.Time) (now, shift float32) {
	elapsed := t.Sub(c.start).Seconds()*c.scale - c.base
	if elapsed >= rebaseAfter {
		n := stdmath.Floor(elapsed/rebaseAfter) * rebaseAfter
		c.base += n
		elapsed -= n
		shift = float32(n)
	}
	return float32(elapsed), shift
}

// Run ticks until ctx is canceled. Animation time advances with wall time
// multiplied by the configured time scale.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Playback.TickInterval())
	defer ticker.Stop()

	c := clock{start: time.Now(), scale: float64(s.cfg.Playback.TimeScale)}
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			now, shift := c.at(t)
			if shift > 0 {
				s.Rebase(shift)
			}
			s.Tick(now)
		}
	}
}

// Handler returns the routed HTTP handler wrapped with panic recovery and
// access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/skeletons", s.handleSkeletons).Methods(http.MethodGet)
	r.HandleFunc("/api/skeletons/{name}", s.handleSkeleton).Methods(http.MethodGet)
	r.HandleFunc("/api/clips", s.handleClips).Methods(http.MethodGet)
	r.HandleFunc("/api/pose/{skeleton}", s.handlePose).Methods(http.MethodGet)
	r.HandleFunc("/api/preview/{skeleton}", s.handlePreview).Methods(http.MethodGet)
	r.HandleFunc("/api/rigs", s.handleRigs).Methods(http.MethodGet)
	r.HandleFunc("/api/rigs/{name}", s.handleRig).Methods(http.MethodGet)
	r.HandleFunc("/api/rigs/{name}/inputs", s.handleInputs).Methods(http.MethodPut, http.MethodPost)
	r.HandleFunc("/api/rigs/{name}/preview", s.handleRigPreview).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)

	access := zap.NewStdLog(s.log.Named("http")).Writer()
	h := handlers.RecoveryHandler(handlers.RecoveryLogger(zap.NewStdLog(s.log)))(r)
	return handlers.LoggingHandler(access, h)
}

// ListenAndServe serves Handler on the configured address until ctx is
// canceled, then shuts the listener down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "serving")
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdown); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	return nil
}
