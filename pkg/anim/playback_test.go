package anim

import "testing"

func TestPlaybackStartStop(t *testing.T) {
	p := NewPlayback(MustClip("walk", 1, true))

	if p.Started() {
		t.Fatal("new playback should be stopped")
	}
	if p.Speed() != 1 {
		t.Errorf("default speed = %v, want 1", p.Speed())
	}

	p.Start(3)
	if !p.Started() || p.StartTime() != 3 {
		t.Errorf("after Start(3): started=%v start=%v", p.Started(), p.StartTime())
	}

	// Starting again restarts from the new time.
	p.Start(5)
	if p.StartTime() != 5 {
		t.Errorf("restart start time = %v, want 5", p.StartTime())
	}

	p.Stop()
	p.Stop()
	if p.Started() {
		t.Error("expected stopped after Stop")
	}
}

func TestPlaybackStartIfStopped(t *testing.T) {
	p := NewPlayback(MustClip("walk", 1, true))

	if !p.StartIfStopped(1) {
		t.Fatal("expected StartIfStopped to start a stopped playback")
	}
	if p.StartIfStopped(2) {
		t.Error("expected StartIfStopped to leave a running playback alone")
	}
	if p.StartTime() != 1 {
		t.Errorf("start time = %v, want 1", p.StartTime())
	}
}

func TestPlaybackElapsed(t *testing.T) {
	loop := NewPlayback(MustClip("walk", 1, true))
	once := NewPlayback(MustClip("bite", 0.4, false))
	loop.Start(10)
	once.Start(10)

	tests := []struct {
		name string
		p    *Playback
		now  float32
		want float32
	}{
		{"loop start", loop, 10, 0},
		{"loop mid", loop, 10.25, 0.25},
		{"loop wrapped", loop, 11.25, 0.25},
		{"once mid", once, 10.2, 0.2},
		{"once frozen", once, 20, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Elapsed(tt.now); !approx(got, tt.want) {
				t.Errorf("Elapsed(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestPlaybackSpeed(t *testing.T) {
	p := NewPlayback(MustClip("walk", 1, true))
	p.SetSpeed(2)
	p.Start(0)

	if got := p.Elapsed(0.25); !approx(got, 0.5) {
		t.Errorf("Elapsed at double speed = %v, want 0.5", got)
	}
}

func TestPlaybackFinished(t *testing.T) {
	once := NewPlayback(MustClip("bite", 0.4, false))
	loop := NewPlayback(MustClip("walk", 1, true))

	if once.Finished(100) {
		t.Error("stopped playback should not report finished")
	}

	once.Start(0)
	loop.Start(0)
	if once.Finished(0.2) {
		t.Error("one-shot should not be finished mid-clip")
	}
	if !once.Finished(0.4) || !once.Finished(10) {
		t.Error("one-shot should be finished at and after its length")
	}
	if loop.Finished(50) {
		t.Error("looping playback never finishes")
	}
}

func TestNewPlaybackNilClipPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil clip")
		}
	}()
	NewPlayback(nil)
}

func TestStartWithoutClipPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic starting a playback without a clip")
		}
	}()
	var p Playback
	p.Start(0)
}

func TestPlaybackRebase(t *testing.T) {
	p := NewPlayback(MustClip("walk", 1, true))
	p.Start(3600.25)
	before := p.Elapsed(3600.5)

	p.Rebase(3600)
	if p.StartTime() != 0.25 {
		t.Errorf("start time after rebase = %v, want 0.25", p.StartTime())
	}
	if got := p.Elapsed(0.5); got != before {
		t.Errorf("Elapsed after rebase = %v, want %v", got, before)
	}
}
