package inspect

import (
	"bytes"
	"encoding/json"
	"image"
	stdmath "math"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/yohamta/donburi"
	"go.uber.org/zap"

	"github.com/Faultbox/creaturerig/internal/assets"
	"github.com/Faultbox/creaturerig/internal/config"
	"github.com/Faultbox/creaturerig/internal/ecs"
	"github.com/Faultbox/creaturerig/internal/preview"
	"github.com/Faultbox/creaturerig/pkg/anim"
)

// BoneState is one bone of a resolved pose.
type BoneState struct {
	Name      string     `json:"name"`
	Parent    int        `json:"parent"`
	Translate [3]float32 `json:"translate"`
	Rotate    [3]float32 `json:"rotate"`
	Scale     [3]float32 `json:"scale"`
	Visible   bool       `json:"visible"`
	World     [3]float32 `json:"world"`
}

// RigState is the current state of a spawned rig.
type RigState struct {
	Name     string      `json:"name"`
	Skeleton string      `json:"skeleton"`
	Active   []string    `json:"active"`
	Bones    []BoneState `json:"bones,omitempty"`
}

// SkeletonInfo summarizes a catalog skeleton.
type SkeletonInfo struct {
	Name  string   `json:"name"`
	Bones []string `json:"bones"`
}

// ChannelInfo summarizes one clip channel.
type ChannelInfo struct {
	Bone string `json:"bone"`
	Kind string `json:"kind"`
	Keys int    `json:"keys"`
}

// ClipInfo summarizes a catalog clip.
type ClipInfo struct {
	Name     string        `json:"name"`
	Length   float32       `json:"length"`
	Loop     bool          `json:"loop"`
	Channels []ChannelInfo `json:"channels"`
}

// InputsRequest is the body accepted by the inputs endpoint.
type InputsRequest struct {
	Phase     float32         `json:"phase"`
	Amplitude float32         `json:"amplitude"`
	Speed     float32         `json:"speed"`
	LookYaw   float32         `json:"look_yaw"`
	LookPitch float32         `json:"look_pitch"`
	Flags     map[string]bool `json:"flags"`
}

// Inputs converts the request to animation inputs.
func (r InputsRequest) Inputs() anim.Inputs {
	return anim.Inputs{
		Phase:     r.Phase,
		Amplitude: r.Amplitude,
		Speed:     r.Speed,
		LookYaw:   r.LookYaw,
		LookPitch: r.LookPitch,
		Flags:     r.Flags,
	}
}

// Message is a websocket frame. Tick frames carry every rig; finish frames
// carry one completed one-shot.
type Message struct {
	Type string     `json:"type"`
	Time float32    `json:"time"`
	Rigs []RigState `json:"rigs,omitempty"`
	Rig  string     `json:"rig,omitempty"`
	Slot string     `json:"slot,omitempty"`
}

func finishedMessage(f ecs.ClipFinished) Message {
	return Message{Type: "finished", Time: f.Time, Rig: f.Rig, Slot: f.Slot}
}

func encodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Bones captures the current pose of s.
func Bones(s *anim.Skeleton) []BoneState {
	world := s.WorldTransforms(nil)
	vis := s.Visibility(nil)
	out := make([]BoneState, s.Len())
	for i := range out {
		b := s.Bone(i)
		out[i] = BoneState{
			Name:      b.Name,
			Parent:    b.Parent,
			Translate: b.Current.Translate.Array(),
			Rotate:    b.Current.Rotate.Array(),
			Scale:     b.Current.Scale.Array(),
			Visible:   vis[i],
			World:     world[i].Translation().Array(),
		}
	}
	return out
}

func (s *Server) rigStateLocked(name string, withBones bool) (RigState, bool) {
	e, ok := s.rigs[name]
	if !ok || !s.world.Valid(e) {
		return RigState{}, false
	}
	c := ecs.Rig.Get(s.world.Entry(e)).Controller
	st := RigState{
		Name:     name,
		Skeleton: c.Skeleton().Name(),
		Active:   c.Rig().Animator().Active(),
	}
	if withBones {
		st.Bones = Bones(c.Skeleton())
	}
	return st, true
}

func (s *Server) snapshotLocked() Message {
	m := Message{Type: "tick", Time: s.now}
	for _, name := range sortedKeys(s.rigs) {
		if st, ok := s.rigStateLocked(name, true); ok {
			m.Rigs = append(m.Rigs, st)
		}
	}
	return m
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) handleSkeletons(w http.ResponseWriter, r *http.Request) {
	var out []SkeletonInfo
	for _, name := range s.cat.SkeletonNames() {
		out = append(out, SkeletonInfo{Name: name, Bones: s.cat.Skeletons[name].Names()})
	}
	writeJSON(w, out)
}

func (s *Server) handleSkeleton(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	proto, ok := s.cat.Skeletons[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("unknown skeleton %q", name))
		return
	}
	writeJSON(w, assets.DocFromSkeleton(proto))
}

func (s *Server) handleClips(w http.ResponseWriter, r *http.Request) {
	var out []ClipInfo
	for _, name := range s.cat.Library.Names() {
		c := s.cat.Library.MustGet(name)
		info := ClipInfo{Name: name, Length: c.Length(), Loop: c.Looping()}
		for _, ch := range c.Channels() {
			info.Channels = append(info.Channels, ChannelInfo{Bone: ch.Bone, Kind: ch.Kind.String(), Keys: len(ch.Keys)})
		}
		out = append(out, info)
	}
	writeJSON(w, out)
}

// posed returns a fresh copy of the named skeleton, posed by the clip and
// time given in the query. Without a clip the rest pose is returned.
func (s *Server) posed(r *http.Request) (*anim.Skeleton, int, error) {
	name := mux.Vars(r)["skeleton"]
	proto, ok := s.cat.Skeletons[name]
	if !ok {
		return nil, http.StatusNotFound, errors.Errorf("unknown skeleton %q", name)
	}
	skel := proto.Clone()

	q := r.URL.Query()
	clipName := q.Get("clip")
	if clipName == "" {
		return skel, 0, nil
	}
	clip, ok := s.cat.Library.Get(clipName)
	if !ok {
		return nil, http.StatusNotFound, errors.Errorf("unknown clip %q", clipName)
	}

	var t float64
	if v := q.Get("t"); v != "" {
		var err error
		if t, err = strconv.ParseFloat(v, 32); err != nil {
			return nil, http.StatusBadRequest, errors.Wrapf(err, "time %q", v)
		}
		if stdmath.IsNaN(t) || stdmath.IsInf(t, 0) {
			return nil, http.StatusBadRequest, errors.Errorf("time %q is not finite", v)
		}
	}

	a := anim.NewAnimator(skel, anim.WithLogger(s.log.Named("pose")))
	if _, err := a.AddLayer(clipName, clip); err != nil {
		return nil, http.StatusInternalServerError, err
	}
	a.Start(clipName, 0)
	a.Resolve(anim.Frame{Now: float32(t)})
	return skel, 0, nil
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	skel, code, err := s.posed(r)
	if err != nil {
		writeError(w, code, err)
		return
	}
	writeJSON(w, Bones(skel))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	skel, code, err := s.posed(r)
	if err != nil {
		writeError(w, code, err)
		return
	}
	s.writePreview(w, r, skel)
}

func (s *Server) writePreview(w http.ResponseWriter, r *http.Request, skel *anim.Skeleton) {
	cfg := s.previewConfig(r)
	writeImage(w, preview.Render(skel, cfg), cfg.Format)
}

func (s *Server) previewConfig(r *http.Request) config.PreviewConfig {
	cfg := s.cfg.Preview
	if f := r.URL.Query().Get("format"); f != "" {
		cfg.Format = f
	}
	return cfg
}

func writeImage(w http.ResponseWriter, img image.Image, format string) {
	var buf bytes.Buffer
	if err := preview.Encode(&buf, img, format); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", preview.ContentType(format))
	w.Write(buf.Bytes())
}

func (s *Server) handleRigs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var out []RigState
	for _, name := range sortedKeys(s.rigs) {
		if st, ok := s.rigStateLocked(name, false); ok {
			out = append(out, st)
		}
	}
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) handleRig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.mu.Lock()
	st, ok := s.rigStateLocked(name, true)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("unknown rig %q", name))
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleInputs(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req InputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decoding inputs"))
		return
	}
	if !s.SetInputs(name, req.Inputs()) {
		writeError(w, http.StatusNotFound, errors.Errorf("unknown rig %q", name))
		return
	}
	s.log.Debug("inputs updated", zap.String("rig", name), zap.Float32("speed", req.Speed))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRigPreview(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cfg := s.previewConfig(r)

	s.mu.Lock()
	e, ok := s.rigs[name]
	var img image.Image
	if ok {
		img = preview.Render(ecs.Rig.Get(s.world.Entry(e)).Controller.Skeleton(), cfg)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("unknown rig %q", name))
		return
	}
	writeImage(w, img, cfg.Format)
}

func sortedKeys(m map[string]donburi.Entity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
