package app

import (
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/shake_feedback/internal/feedback"
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
	"github.com/relabs-tech/shake_feedback/internal/reading"
)

// Subscriber delivers readings to deliver until the returned release
// function is called. Deliveries happen on one goroutine, in order.
type Subscriber interface {
	Subscribe(deliver func(reading.Reading)) (release func(), err error)
}

// Presenter renders the commands of a session.
type Presenter interface {
	Present(session string, cmds []interpreter.Command)
}

// Observer ties one interpreter session to a sensor subscription. The
// subscription is held only while observing; readings that arrive after
// Pause or Stop never reach the interpreter.
type Observer struct {
	mu      sync.Mutex
	interp  *interpreter.Interpreter
	sub     Subscriber
	out     Presenter
	release func()
	gen     uint64
}

func NewObserver(interp *interpreter.Interpreter, sub Subscriber, out Presenter) *Observer {
	return &Observer{interp: interp, sub: sub, out: out}
}

// Observing reports whether the sensor subscription is held.
func (o *Observer) Observing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.release != nil
}

// Resume acquires the sensor subscription and starts from a fresh baseline.
// It is also how observation starts.
func (o *Observer) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.release != nil {
		return nil
	}

	o.gen++
	gen := o.gen
	release, err := o.sub.Subscribe(func(r reading.Reading) { o.deliver(gen, r) })
	if err != nil {
		return fmt.Errorf("subscribe sensors: %w", err)
	}
	o.release = release

	log.Printf("observer: session %s observing", o.interp.ID())
	o.present(o.interp.Resume())
	return nil
}

// Pause releases the subscription, withdraws any visible alert and resets
// the baseline and rotation.
func (o *Observer) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.unsubscribe()
	o.present(o.interp.Pause())
}

// Stop releases the subscription and resets the baseline and rotation.
func (o *Observer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.unsubscribe()
	o.present(o.interp.Stop())
}

// Close ends the session. It is safe to call more than once.
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.release == nil {
		return
	}
	o.unsubscribe()
	o.present(o.interp.Stop())
	log.Printf("observer: session %s closed", o.interp.ID())
}

// SetGyroEnabled toggles rotation tracking.
func (o *Observer) SetGyroEnabled(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.present(o.interp.SetGyroEnabled(enabled))
}

// SetSensitivity replaces the alert threshold.
func (o *Observer) SetSensitivity(v float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cmds, err := o.interp.SetSensitivity(v)
	if err != nil {
		return err
	}
	o.present(cmds)
	return nil
}

// Apply executes a control received from a UI.
func (o *Observer) Apply(c feedback.Control) error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Action {
	case feedback.ActionSetGyro:
		o.SetGyroEnabled(*c.Enabled)
	case feedback.ActionSetSensitivity:
		return o.SetSensitivity(*c.Sensitivity)
	case feedback.ActionPause:
		o.Pause()
	case feedback.ActionStop:
		o.Stop()
	case feedback.ActionResume:
		return o.Resume()
	}
	return nil
}

// State returns a copy of the session state.
func (o *Observer) State() interpreter.SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interp.State()
}

func (o *Observer) deliver(gen uint64, r reading.Reading) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.release == nil || gen != o.gen {
		return
	}

	cmds := o.interp.Handle(r)
	for _, c := range cmds {
		if a, ok := c.(interpreter.Alert); ok {
			log.Printf("observer: %s alert at %d: %s", a.Kind, a.TimestampMillis, a.Message)
		}
	}
	o.present(cmds)
}

func (o *Observer) unsubscribe() {
	if o.release == nil {
		return
	}
	o.release()
	o.release = nil
	log.Printf("observer: session %s released sensors", o.interp.ID())
}

func (o *Observer) present(cmds []interpreter.Command) {
	if len(cmds) == 0 {
		return
	}
	o.out.Present(o.interp.ID(), cmds)
}
