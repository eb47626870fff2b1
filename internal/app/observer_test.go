package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/relabs-tech/shake_feedback/internal/feedback"
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
	"github.com/relabs-tech/shake_feedback/internal/reading"
)

type fakeSubscriber struct {
	mu         sync.Mutex
	delivers   []func(reading.Reading)
	subscribed int
	released   int
	err        error
}

func (f *fakeSubscriber) Subscribe(deliver func(reading.Reading)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.subscribed++
	f.delivers = append(f.delivers, deliver)
	return func() {
		f.mu.Lock()
		f.released++
		f.mu.Unlock()
	}, nil
}

// send delivers r through the n-th subscription, counting from 0.
func (f *fakeSubscriber) send(n int, r reading.Reading) {
	f.mu.Lock()
	deliver := f.delivers[n]
	f.mu.Unlock()
	deliver(r)
}

func (f *fakeSubscriber) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribed, f.released
}

type recordingPresenter struct {
	mu   sync.Mutex
	cmds []interpreter.Command
}

func (p *recordingPresenter) Present(_ string, cmds []interpreter.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmds = append(p.cmds, cmds...)
}

// take returns and clears the recorded commands.
func (p *recordingPresenter) take() []interpreter.Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.cmds
	p.cmds = nil
	return out
}

func newTestObserver(t *testing.T) (*Observer, *fakeSubscriber, *recordingPresenter) {
	t.Helper()
	interp, err := interpreter.New(interpreter.DefaultOptions)
	if err != nil {
		t.Fatalf("interpreter.New() error = %v", err)
	}
	sub := &fakeSubscriber{}
	out := &recordingPresenter{}
	return NewObserver(interp, sub, out), sub, out
}

func accelAt(x, y, z float32, at int64) reading.Accel {
	return reading.Accel{Vec3: reading.Vec3{X: x, Y: y, Z: z}, At: at}
}

func hasCommand(cmds []interpreter.Command, want interpreter.Command) bool {
	for _, c := range cmds {
		if c == want {
			return true
		}
	}
	return false
}

func countAlerts(cmds []interpreter.Command) int {
	n := 0
	for _, c := range cmds {
		if _, ok := c.(interpreter.Alert); ok {
			n++
		}
	}
	return n
}

func TestObserverResumeSubscribesOnce(t *testing.T) {
	obs, sub, out := newTestObserver(t)

	if err := obs.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if err := obs.Resume(); err != nil {
		t.Fatalf("second Resume() error = %v", err)
	}

	if subscribed, _ := sub.counts(); subscribed != 1 {
		t.Errorf("subscribed %d times, want 1", subscribed)
	}
	if !obs.Observing() {
		t.Error("Observing() = false after Resume")
	}

	cmds := out.take()
	want := interpreter.TextUpdate{Panel: interpreter.PanelSensitivity, Text: "Sensitivity: 10.0"}
	if !hasCommand(cmds, want) {
		t.Errorf("Resume presented %#v, want the sensitivity label", cmds)
	}
}

func TestObserverDeliversToInterpreter(t *testing.T) {
	obs, sub, out := newTestObserver(t)
	if err := obs.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	out.take()

	sub.send(0, accelAt(0, 9.81, 0, 0))
	if cmds := out.take(); len(cmds) != 0 {
		t.Errorf("baseline reading presented %#v", cmds)
	}

	sub.send(0, accelAt(20, 9.81, 0, 100))
	if n := countAlerts(out.take()); n != 1 {
		t.Errorf("strong movement raised %d alerts, want 1", n)
	}
}

func TestObserverPauseReleasesAndDropsLateReadings(t *testing.T) {
	obs, sub, out := newTestObserver(t)
	if err := obs.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	sub.send(0, accelAt(0, 9.81, 0, 0))
	out.take()

	obs.Pause()

	if _, released := sub.counts(); released != 1 {
		t.Errorf("released %d times, want 1", released)
	}
	cmds := out.take()
	if !hasCommand(cmds, interpreter.CancelAlert{}) || !hasCommand(cmds, interpreter.StopRotation{}) {
		t.Errorf("Pause presented %#v, want CancelAlert and StopRotation", cmds)
	}

	// a reading already in flight when the subscription was released
	sub.send(0, accelAt(20, 9.81, 0, 100))
	if cmds := out.take(); len(cmds) != 0 {
		t.Errorf("late reading presented %#v", cmds)
	}
	if s := obs.State(); !s.FirstAccelRead || s.LastAccel != nil {
		t.Errorf("late reading changed the baseline: %+v", s)
	}
}

func TestObserverResumeStartsFreshBaseline(t *testing.T) {
	obs, sub, out := newTestObserver(t)
	if err := obs.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	sub.send(0, accelAt(0, 9.81, 0, 0))
	obs.Pause()
	if err := obs.Resume(); err != nil {
		t.Fatalf("Resume() after Pause error = %v", err)
	}
	out.take()

	// the old subscription stays dead
	sub.send(0, accelAt(30, 9.81, 0, 200))
	if cmds := out.take(); len(cmds) != 0 {
		t.Errorf("reading on the released subscription presented %#v", cmds)
	}

	// first reading on the new one is a baseline, not a delta from before the pause
	sub.send(1, accelAt(30, 9.81, 0, 300))
	if cmds := out.take(); len(cmds) != 0 {
		t.Errorf("first reading after Resume presented %#v", cmds)
	}
	sub.send(1, accelAt(30, 9.81, 0, 400))
	if n := countAlerts(out.take()); n != 0 {
		t.Errorf("steady reading after Resume raised %d alerts", n)
	}
}

func TestObserverStopKeepsAlert(t *testing.T) {
	obs, _, out := newTestObserver(t)
	if err := obs.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	out.take()

	obs.Stop()
	cmds := out.take()
	if hasCommand(cmds, interpreter.CancelAlert{}) {
		t.Error("Stop cancelled the alert")
	}
	if !hasCommand(cmds, interpreter.StopRotation{}) {
		t.Errorf("Stop presented %#v, want StopRotation", cmds)
	}
	if obs.Observing() {
		t.Error("Observing() = true after Stop")
	}
}

func TestObserverCloseIsIdempotent(t *testing.T) {
	obs, sub, _ := newTestObserver(t)
	if err := obs.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	obs.Close()
	obs.Close()

	if _, released := sub.counts(); released != 1 {
		t.Errorf("released %d times, want 1", released)
	}

	obs2, sub2, _ := newTestObserver(t)
	if err := obs2.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	obs2.Pause()
	obs2.Close()
	if _, released := sub2.counts(); released != 1 {
		t.Errorf("Close after Pause released %d times, want 1", released)
	}
}

func TestObserverSubscribeError(t *testing.T) {
	obs, sub, _ := newTestObserver(t)
	boom := errors.New("broker down")
	sub.err = boom

	if err := obs.Resume(); !errors.Is(err, boom) {
		t.Fatalf("Resume() error = %v, want %v", err, boom)
	}
	if obs.Observing() {
		t.Error("Observing() = true after failed Resume")
	}
}

func TestObserverApply(t *testing.T) {
	tests := []struct {
		name    string
		control feedback.Control
		want    interpreter.Command
		wantErr bool
	}{
		{
			name:    "disable gyro",
			control: feedback.SetGyro(false),
			want:    interpreter.StopRotation{},
		},
		{
			name:    "enable gyro",
			control: feedback.SetGyro(true),
			want:    interpreter.PanelVisibility{Panel: interpreter.PanelGyro, Visible: true},
		},
		{
			name:    "sensitivity",
			control: feedback.SetSensitivity(4),
			want:    interpreter.TextUpdate{Panel: interpreter.PanelSensitivity, Text: "Sensitivity: 4.0"},
		},
		{
			name:    "pause",
			control: feedback.Control{Action: feedback.ActionPause},
			want:    interpreter.CancelAlert{},
		},
		{
			name:    "negative sensitivity",
			control: feedback.SetSensitivity(-1),
			wantErr: true,
		},
		{
			name:    "unknown action",
			control: feedback.Control{Action: "reboot"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, _, out := newTestObserver(t)
			if err := obs.Resume(); err != nil {
				t.Fatalf("Resume() error = %v", err)
			}
			out.take()

			err := obs.Apply(tt.control)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Apply() succeeded")
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if cmds := out.take(); !hasCommand(cmds, tt.want) {
				t.Errorf("Apply() presented %#v, want %#v", cmds, tt.want)
			}
		})
	}
}

func TestObserverApplyResume(t *testing.T) {
	obs, sub, _ := newTestObserver(t)
	if err := obs.Apply(feedback.Control{Action: feedback.ActionResume}); err != nil {
		t.Fatalf("Apply(resume) error = %v", err)
	}
	if subscribed, _ := sub.counts(); subscribed != 1 {
		t.Errorf("subscribed %d times, want 1", subscribed)
	}
	if err := obs.Apply(feedback.Control{Action: feedback.ActionStop}); err != nil {
		t.Fatalf("Apply(stop) error = %v", err)
	}
	if _, released := sub.counts(); released != 1 {
		t.Errorf("released %d times, want 1", released)
	}
}
