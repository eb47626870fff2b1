package app

import (
	"fmt"
	"image"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/feedback"
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
)

const (
	displayWidth  = 128
	displayHeight = 64

	// alertShowFor is how long an alert stays on the panel.
	alertShowFor = 2 * time.Second

	arrowCenterX = 108
	arrowCenterY = 20
	arrowLength  = 16
)

const intensityPrefix = "Movement intensity (change): "

// DisplayData holds the latest feedback for the panel.
type DisplayData struct {
	mu sync.RWMutex

	tilt         string
	haveTilt     bool
	intensity    string
	angle        float64
	showArrow    bool
	alert        string
	alertUntil   time.Time
	opacity      float64
	opacityDirty bool
}

func newDisplayData() *DisplayData {
	return &DisplayData{opacity: interpreter.FullOpacity}
}

// displaySnapshot is a lock-free copy of DisplayData for one frame.
type displaySnapshot struct {
	tilt      string
	haveTilt  bool
	intensity string
	angle     float64
	showArrow bool
	alert     string
}

// apply folds one feedback event into the panel state.
func (d *DisplayData) apply(ev feedback.Event, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.Type {
	case feedback.TypeTilt:
		d.tilt = feedback.StyleFor(interpreter.Tilt(ev.Tilt)).Short
		d.haveTilt = true
	case feedback.TypeText:
		if ev.Panel == string(interpreter.PanelAccel) {
			if v, ok := lineValue(ev.Text, intensityPrefix); ok {
				d.intensity = v
			}
		}
	case feedback.TypeVisibility:
		if ev.Panel == string(interpreter.PanelGyro) {
			d.showArrow = ev.Visible
		}
	case feedback.TypeRotate:
		d.angle = ev.To
	case feedback.TypeAlert:
		d.alert = ev.Message
		d.alertUntil = now.Add(alertShowFor)
	case feedback.TypeCancelAlert:
		d.alert = ""
	case feedback.TypeOpacity:
		if ev.Opacity != d.opacity {
			d.opacity = ev.Opacity
			d.opacityDirty = true
		}
	}
}

func (d *DisplayData) snapshot(now time.Time) displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := displaySnapshot{
		tilt:      d.tilt,
		haveTilt:  d.haveTilt,
		intensity: d.intensity,
		angle:     d.angle,
		showArrow: d.showArrow,
	}
	if d.alert != "" && now.Before(d.alertUntil) {
		s.alert = d.alert
	}
	return s
}

// takeContrast returns the contrast to apply if opacity changed since the
// last call.
func (d *DisplayData) takeContrast() (byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opacityDirty {
		return 0, false
	}
	d.opacityDirty = false
	return contrastFor(d.opacity), true
}

func contrastFor(opacity float64) byte {
	switch {
	case opacity <= 0:
		return 0
	case opacity >= 1:
		return 0xFF
	default:
		return byte(math.Round(opacity * 0xFF))
	}
}

// lineValue returns the rest of the first line of text starting with prefix.
func lineValue(text, prefix string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), true
		}
	}
	return "", false
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, cfg.DisplayI2CAddr, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)
	defer dev.Halt()

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := newDisplayData()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeFeedback(client, cfg.TopicFeedback, "display", func(ev feedback.Event) {
		data.apply(ev, time.Now())
	}); err != nil {
		return fmt.Errorf("failed to subscribe for display: %w", err)
	}

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for now := range ticker.C {
		if level, ok := data.takeContrast(); ok {
			if err := dev.SetContrast(level); err != nil {
				log.Printf("display: error setting contrast: %v", err)
			}
		}

		img := renderFeedback(data.snapshot(now))
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// renderFeedback draws one frame: tilt, intensity and rotation on the left,
// the arrow on the right and the alert on the bottom line.
func renderFeedback(s displaySnapshot) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	if !s.haveTilt {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Shake feedback"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return img
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(s.tilt))

	if s.intensity != "" {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Move: " + s.intensity))
	}

	if s.showArrow {
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(fmt.Sprintf("Rot: %6.0f", s.angle)))
		drawArrow(img, s.angle)
	}

	if s.alert != "" {
		msg := s.alert
		if len(msg) > displayWidth/7 {
			msg = msg[:displayWidth/7]
		}
		drawer.Dot = fixed.P(0, 62)
		drawer.DrawBytes([]byte(msg))
	}

	return img
}

// drawArrow draws a needle from the pivot; 0° points up, clockwise positive.
func drawArrow(img *image1bit.VerticalLSB, degrees float64) {
	rad := degrees * math.Pi / 180
	dx := math.Sin(rad)
	dy := -math.Cos(rad)
	for i := 0; i <= arrowLength; i++ {
		x := arrowCenterX + int(math.Round(dx*float64(i)))
		y := arrowCenterY + int(math.Round(dy*float64(i)))
		img.SetBit(x, y, image1bit.On)
	}
	// pivot
	for _, p := range []image.Point{{0, 0}, {1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
		img.SetBit(arrowCenterX+p.X, arrowCenterY+p.Y, image1bit.On)
	}
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(15, 26)
	drawer.DrawBytes([]byte("Shake Pi"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Waiting for"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("sensors"))

	return img
}
