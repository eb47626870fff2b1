package app

import (
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/reading"
	"github.com/relabs-tech/shake_feedback/internal/sensors"
)

// pacer waits before a reading is handed on. It returns false when done
// closes first.
type pacer func(r reading.Reading, done <-chan struct{}) bool

func noPacing(reading.Reading, <-chan struct{}) bool { return true }

// tickPacer spaces polled sources: every accelerometer reading starts a
// new IMU read and waits for the next slot.
func tickPacer(interval time.Duration, sleep func(time.Duration, <-chan struct{}) bool) pacer {
	var next time.Time
	return func(r reading.Reading, done <-chan struct{}) bool {
		if _, ok := r.(reading.Accel); !ok {
			return true
		}
		now := time.Now()
		if next.IsZero() || next.Before(now) {
			next = now
		}
		wait := next.Sub(now)
		next = next.Add(interval)
		if wait <= 0 {
			return true
		}
		return sleep(wait, done)
	}
}

// timestampPacer reproduces the gaps between recorded timestamps.
func timestampPacer(sleep func(time.Duration, <-chan struct{}) bool) pacer {
	var last int64
	var started bool
	return func(r reading.Reading, done <-chan struct{}) bool {
		at := r.TimestampMillis()
		if started && at > last {
			if !sleep(time.Duration(at-last)*time.Millisecond, done) {
				return false
			}
		}
		started = true
		last = at
		return true
	}
}

func sleepOrDone(d time.Duration, done <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}

// pacerFor picks how readings from the configured source are spaced. The
// returned constructor yields a fresh pacer per subscription.
func pacerFor(cfg *config.Config) func() pacer {
	switch cfg.SensorSource {
	case config.SourceMock, config.SourceHardware:
		interval := time.Duration(cfg.IMUSampleInterval) * time.Millisecond
		return func() pacer { return tickPacer(interval, sleepOrDone) }
	case config.SourceReplay:
		return func() pacer { return timestampPacer(sleepOrDone) }
	default:
		// the serial bridge paces itself
		return func() pacer { return noPacing }
	}
}

// sourceSubscriber feeds an Observer straight from a local sensor source,
// without a broker. Reads are serialized so a released pump still inside
// Next never races the next subscription.
type sourceSubscriber struct {
	src      sensors.Source
	newPacer func() pacer

	readMu sync.Mutex
}

func newSourceSubscriber(src sensors.Source, newPacer func() pacer) *sourceSubscriber {
	return &sourceSubscriber{src: src, newPacer: newPacer}
}

func (s *sourceSubscriber) Subscribe(deliver func(reading.Reading)) (func(), error) {
	done := make(chan struct{})
	pace := s.newPacer()

	go func() {
		for {
			r, err := s.next(done)
			if errors.Is(err, errReleased) {
				return
			}
			if errors.Is(err, io.EOF) {
				log.Println("source: end of readings")
				return
			}
			if err != nil {
				log.Printf("source: read error: %v", err)
				if !sleepOrDone(100*time.Millisecond, done) {
					return
				}
				continue
			}
			if !pace(r, done) {
				return
			}
			select {
			case <-done:
				return
			default:
				deliver(r)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

var errReleased = errors.New("subscription released")

func (s *sourceSubscriber) next(done <-chan struct{}) (reading.Reading, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	select {
	case <-done:
		return nil, errReleased
	default:
	}
	return s.src.Next()
}
