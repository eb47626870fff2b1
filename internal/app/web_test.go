package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/shake_feedback/internal/feedback"
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
	"github.com/relabs-tech/shake_feedback/internal/reading"
)

func dialHub(t *testing.T, h *feedbackHub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h.routes())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) feedback.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev feedback.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestHubSendsStateThenLiveEvents(t *testing.T) {
	h := newFeedbackHub(func(feedback.Control) error { return nil })
	h.Broadcast(feedback.Event{Type: feedback.TypeTilt, Tilt: "straight"})
	h.Broadcast(feedback.Event{Type: feedback.TypeAlert, Message: "Strong movement detected!"})

	conn := dialHub(t, h)

	// only the kept state is replayed, never a past alert
	if ev := readEvent(t, conn); ev.Type != feedback.TypeTilt || ev.Tilt != "straight" {
		t.Fatalf("first event = %+v, want the tilt state", ev)
	}

	h.Broadcast(feedback.Event{Type: feedback.TypeOpacity, Opacity: 0.3})
	if ev := readEvent(t, conn); ev.Type != feedback.TypeOpacity || ev.Opacity != 0.3 {
		t.Errorf("live event = %+v, want opacity 0.3", ev)
	}
}

func TestHubForwardsValidControls(t *testing.T) {
	got := make(chan feedback.Control, 4)
	h := newFeedbackHub(func(c feedback.Control) error {
		got <- c
		return nil
	})
	conn := dialHub(t, h)

	if err := conn.WriteJSON(feedback.Control{Action: "reboot"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(feedback.SetGyro(true)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case c := <-got:
		if c.Action != feedback.ActionSetGyro || c.Enabled == nil || !*c.Enabled {
			t.Errorf("forwarded %+v, want set_gyro true", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("control was not forwarded")
	}
}

func TestHubStateEndpoint(t *testing.T) {
	h := newFeedbackHub(func(feedback.Control) error { return nil })

	rec := httptest.NewRecorder()
	h.serveState(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("empty state status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	h.Broadcast(feedback.Event{Type: feedback.TypeText, Panel: "accel", Text: "a"})
	h.Broadcast(feedback.Event{Type: feedback.TypeText, Panel: "accel", Text: "b"})
	h.Broadcast(feedback.Event{Type: feedback.TypeRotate, To: 90})
	h.Broadcast(feedback.Event{Type: feedback.TypeStopRotation})

	rec = httptest.NewRecorder()
	h.serveState(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var state []feedback.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state) != 2 {
		t.Fatalf("state = %+v, want accel text and rotation", state)
	}
	if state[0].Type != feedback.TypeRotate || state[0].To != 90 {
		t.Errorf("state[0] = %+v, want the last rotation", state[0])
	}
	if state[1].Text != "b" {
		t.Errorf("state[1] = %+v, want the latest accel text", state[1])
	}
}

func TestHubKeepsArrowResetForLateJoiners(t *testing.T) {
	interp, err := interpreter.New(interpreter.Options{Sensitivity: 100, GyroEnabled: true})
	if err != nil {
		t.Fatalf("interpreter.New() error = %v", err)
	}
	h := newFeedbackHub(func(feedback.Control) error { return nil })
	broadcast := func(cmds []interpreter.Command) {
		for _, ev := range feedback.FromCommands(interp.ID(), cmds) {
			h.Broadcast(ev)
		}
	}

	broadcast(interp.Handle(reading.Gyro{Vec3: reading.Vec3{Z: 1}, At: 0}))
	broadcast(interp.Pause())
	broadcast(interp.Resume())

	conn := dialHub(t, h)
	for {
		ev := readEvent(t, conn)
		if ev.Type != feedback.TypeRotate {
			continue
		}
		if ev.To != 0 {
			t.Errorf("late joiner got arrow at %v, want 0", ev.To)
		}
		return
	}
}
