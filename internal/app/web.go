package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/feedback"
)

const (
	writeWait    = 5 * time.Second
	clientBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// feedbackHub fans feedback events out to websocket clients and keeps the
// latest state so late joiners render the current view.
type feedbackHub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	state   map[string]feedback.Event

	control func(feedback.Control) error
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newFeedbackHub(control func(feedback.Control) error) *feedbackHub {
	return &feedbackHub{
		clients: make(map[*hubClient]struct{}),
		state:   make(map[string]feedback.Event),
		control: control,
	}
}

// stateKey groups events that replace each other. Empty means the event
// is transient and not kept.
func stateKey(ev feedback.Event) string {
	switch ev.Type {
	case feedback.TypeText, feedback.TypeVisibility:
		return ev.Type + "/" + ev.Panel
	case feedback.TypeTilt, feedback.TypeOpacity:
		return ev.Type
	case feedback.TypeRotate:
		return ev.Type
	default:
		return ""
	}
}

// Broadcast records ev and sends it to every client.
func (h *feedbackHub) Broadcast(ev feedback.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("web: json marshal error (%s): %v", ev.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if key := stateKey(ev); key != "" {
		h.state[key] = ev
	}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			log.Println("web: client too slow, dropping")
			h.drop(c)
		}
	}
}

// State returns the latest event of each kind, ordered by key.
func (h *feedbackHub) State() []feedback.Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stateLocked()
}

// drop must be called with h.mu held.
func (h *feedbackHub) drop(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ServeWS streams feedback to one client and applies the controls it sends.
func (h *feedbackHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, clientBuffer)}

	// register and queue the current view under one lock so no broadcast
	// slips in between
	h.mu.Lock()
	h.clients[c] = struct{}{}
	for _, ev := range h.stateLocked() {
		if payload, err := json.Marshal(ev); err == nil {
			c.send <- payload
		}
	}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *feedbackHub) stateLocked() []feedback.Event {
	keys := make([]string, 0, len(h.state))
	for k := range h.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]feedback.Event, 0, len(keys))
	for _, k := range keys {
		out = append(out, h.state[k])
	}
	return out
}

func (h *feedbackHub) writePump(c *hubClient) {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("web: websocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (h *feedbackHub) readPump(c *hubClient) {
	defer func() {
		h.mu.Lock()
		h.drop(c)
		h.mu.Unlock()
	}()

	for {
		var ctrl feedback.Control
		if err := c.conn.ReadJSON(&ctrl); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}

		if err := ctrl.Validate(); err != nil {
			log.Printf("web: %v", err)
			continue
		}
		if err := h.control(ctrl); err != nil {
			log.Printf("web: control %q not forwarded: %v", ctrl.Action, err)
		}
	}
}

func (h *feedbackHub) serveState(w http.ResponseWriter, r *http.Request) {
	state := h.State()
	if len(state) == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func (h *feedbackHub) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/api/state", h.serveState)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// RunWeb serves the feedback view and forwards controls to the interpreter.
func RunWeb() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	hub := newFeedbackHub(func(c feedback.Control) error {
		return publishControl(client, cfg.TopicControl, c)
	})

	if err := subscribeFeedback(client, cfg.TopicFeedback, "web", hub.Broadcast); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, hub.routes())
}
