package app

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/feedback"
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
)

// RunInterpreter runs one session against the sensor topics, publishing
// feedback and taking controls over MQTT until interrupted.
func RunInterpreter() error {
	cfg := config.Get()

	interp, err := interpreter.New(interpreter.Options{
		Sensitivity: cfg.InitialSensitivity,
		GyroEnabled: cfg.GyroEnabled,
	})
	if err != nil {
		return err
	}
	log.Printf("interpreter: session %s (sensitivity %.1f, gyro %v)", interp.ID(), cfg.InitialSensitivity, cfg.GyroEnabled)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDInterpreter)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	obs := NewObserver(interp, newMQTTSubscriber(client, cfg), &mqttPresenter{client: client, topic: cfg.TopicFeedback})
	defer obs.Close()

	// Controls are applied off the MQTT callback so a session change never
	// blocks message routing.
	controls := make(chan feedback.Control, 16)
	token := client.Subscribe(cfg.TopicControl, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var c feedback.Control
		if err := json.Unmarshal(msg.Payload(), &c); err != nil {
			log.Printf("interpreter: control unmarshal error: %v", err)
			return
		}
		select {
		case controls <- c:
		default:
			log.Printf("interpreter: control %q dropped, queue full", c.Action)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("interpreter: subscribed to %s", cfg.TopicControl)

	if err := obs.Resume(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case c := <-controls:
			if err := obs.Apply(c); err != nil {
				log.Printf("interpreter: control %q rejected: %v", c.Action, err)
				continue
			}
			log.Printf("interpreter: applied control %q", c.Action)
		case <-sigCh:
			log.Println("interpreter: shutting down")
			return nil
		}
	}
}
