package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/feedback"
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
)

var (
	styleTag = lipgloss.NewStyle().
			Bold(true).
			Width(7)

	styleAlert = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))

	styleMuted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080"))
)

// formatEvent renders one feedback event as a console line.
func formatEvent(ev feedback.Event) string {
	switch ev.Type {
	case feedback.TypeText:
		body := strings.ReplaceAll(ev.Text, "\n", " | ")
		return styleTag.Render("[TEXT]") + " " + ev.Panel + ": " + body
	case feedback.TypeVisibility:
		state := "hidden"
		if ev.Visible {
			state = "shown"
		}
		return styleTag.Render("[PANEL]") + " " + styleMuted.Render(ev.Panel+" "+state)
	case feedback.TypeTilt:
		tilt := lipgloss.NewStyle().
			Background(lipgloss.Color(ev.Color)).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1).
			Render(ev.Label)
		return styleTag.Render("[TILT]") + " " + tilt
	case feedback.TypeRotate:
		return styleTag.Render("[ROT]") + fmt.Sprintf(" %.1f° -> %.1f° (%dms)", ev.From, ev.To, ev.DurationMillis)
	case feedback.TypeStopRotation:
		return styleTag.Render("[ROT]") + " " + styleMuted.Render("stopped")
	case feedback.TypeAlert:
		return styleTag.Render("[ALERT]") + " " + styleAlert.Render(ev.Message)
	case feedback.TypeCancelAlert:
		return styleTag.Render("[ALERT]") + " " + styleMuted.Render("cleared")
	case feedback.TypeOpacity:
		return styleTag.Render("[LIGHT]") + fmt.Sprintf(" opacity %.1f", ev.Opacity)
	default:
		return styleTag.Render("[?]") + " " + ev.Type
	}
}

// consolePresenter prints commands as they are emitted.
type consolePresenter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *consolePresenter) Present(session string, cmds []interpreter.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range feedback.FromCommands(session, cmds) {
		fmt.Fprintln(p.w, formatEvent(ev))
	}
}

// RunConsoleMQTT prints the feedback stream of a running interpreter.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	var mu sync.Mutex
	err = subscribeFeedback(client, cfg.TopicFeedback, "console", func(ev feedback.Event) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Println(formatEvent(ev))
	})
	if err != nil {
		client.Disconnect(250)
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
