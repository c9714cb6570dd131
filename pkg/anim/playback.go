package anim

// Playback tracks whether and since when one clip has been playing for one
// entity. A Playback is created once per entity per clip slot and toggled
// with Start and Stop.
type Playback struct {
	clip      *Clip
	started   bool
	startTime float32
	speed     float32
}

// NewPlayback creates a stopped playback for c at normal speed.
// It panics if c is nil: a slot without a clip is an engine bug.
func NewPlayback(c *Clip) *Playback {
	if c == nil {
		panic("anim: NewPlayback with nil clip")
	}
	return &Playback{clip: c, speed: 1}
}

// Clip returns the clip being tracked.
func (p *Playback) Clip() *Clip {
	return p.clip
}

// Started reports whether the playback is running.
func (p *Playback) Started() bool {
	return p.started
}

// StartTime returns the time passed to the last Start.
func (p *Playback) StartTime() float32 {
	return p.startTime
}

// Speed returns the playback rate multiplier.
func (p *Playback) Speed() float32 {
	return p.speed
}

// SetSpeed sets the playback rate multiplier (1 = authored speed).
func (p *Playback) SetSpeed(speed float32) {
	p.speed = speed
}

// Start begins playback at now. Starting a running playback restarts it.
func (p *Playback) Start(now float32) {
	if p.clip == nil {
		panic("anim: Start on playback without a clip")
	}
	p.started = true
	p.startTime = now
}

// StartIfStopped starts the playback only when it is not already running,
// leaving a running clip's phase untouched.
func (p *Playback) StartIfStopped(now float32) bool {
	if p.started {
		return false
	}
	p.Start(now)
	return true
}

// Stop halts playback unconditionally.
func (p *Playback) Stop() {
	p.started = false
}

// Rebase moves the start time back by shift so that the playback keeps its
// phase when the caller's clock is rewound by the same amount.
func (p *Playback) Rebase(shift float32) {
	p.startTime -= shift
}

// Elapsed returns the clip-local time at now: (now - start) * speed, wrapped
// for looping clips and held at the clip length for one-shots.
func (p *Playback) Elapsed(now float32) float32 {
	return p.clip.Wrap((now - p.startTime) * p.speed)
}

// Finished reports whether a running one-shot has reached its final pose.
// Looping and stopped playbacks never finish.
func (p *Playback) Finished(now float32) bool {
	if !p.started || p.clip.looping {
		return false
	}
	return (now-p.startTime)*p.speed >= p.clip.length
}
