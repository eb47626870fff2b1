package app

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/feedback"
	"github.com/relabs-tech/shake_feedback/internal/interpreter"
	"github.com/relabs-tech/shake_feedback/internal/reading"
)

// readingBuffer bounds the readings waiting for the interpreter. MQTT
// callbacks never block on the session; a full buffer drops readings.
const readingBuffer = 256

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", broker, token.Error())
	}
	log.Printf("connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

// sensorTopics maps each sensor topic to the channel it carries.
func sensorTopics(cfg *config.Config) map[string]reading.Channel {
	return map[string]reading.Channel{
		cfg.TopicAccel: reading.ChannelAccelerometer,
		cfg.TopicGyro:  reading.ChannelGyroscope,
		cfg.TopicLight: reading.ChannelLight,
	}
}

// decodeSample parses a sensor payload and checks it against the topic's
// channel.
func decodeSample(payload []byte, want reading.Channel) (reading.Reading, error) {
	var s reading.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("sample unmarshal: %w", err)
	}
	if s.Channel == "" {
		s.Channel = want
	}
	if s.Channel != want {
		return nil, fmt.Errorf("sample for %q on the %q topic", s.Channel, want)
	}
	return s.Reading()
}

// mqttSubscriber subscribes to the three sensor topics.
type mqttSubscriber struct {
	client mqtt.Client
	topics map[string]reading.Channel
}

func newMQTTSubscriber(client mqtt.Client, cfg *config.Config) *mqttSubscriber {
	return &mqttSubscriber{client: client, topics: sensorTopics(cfg)}
}

func (s *mqttSubscriber) Subscribe(deliver func(reading.Reading)) (func(), error) {
	readings := make(chan reading.Reading, readingBuffer)
	done := make(chan struct{})

	var (
		mu      sync.Mutex
		dropped int
	)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case <-done:
			return
		default:
		}

		r, err := decodeSample(msg.Payload(), s.topics[msg.Topic()])
		if err != nil {
			log.Printf("interpreter: %s: %v", msg.Topic(), err)
			return
		}

		select {
		case readings <- r:
		default:
			mu.Lock()
			dropped++
			if dropped%100 == 1 {
				log.Printf("interpreter: reading buffer full, %d dropped", dropped)
			}
			mu.Unlock()
		}
	}

	filters := make(map[string]byte, len(s.topics))
	names := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		filters[topic] = 0
		names = append(names, topic)
	}

	token := s.client.SubscribeMultiple(filters, handler)
	token.Wait()
	if token.Error() != nil {
		close(done)
		return nil, token.Error()
	}
	log.Printf("interpreter: subscribed to %v", names)

	go func() {
		for {
			select {
			case <-done:
				return
			case r := <-readings:
				deliver(r)
			}
		}
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(done)
			if token := s.client.Unsubscribe(names...); token.Wait() && token.Error() != nil {
				log.Printf("interpreter: unsubscribe error: %v", token.Error())
			}
		})
	}
	return release, nil
}

// mqttPresenter publishes commands as feedback events.
type mqttPresenter struct {
	client mqtt.Client
	topic  string
}

func (p *mqttPresenter) Present(session string, cmds []interpreter.Command) {
	for _, ev := range feedback.FromCommands(session, cmds) {
		payload, err := json.Marshal(ev)
		if err != nil {
			log.Printf("interpreter: json marshal error (%s): %v", ev.Type, err)
			continue
		}
		if token := p.client.Publish(p.topic, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("interpreter: MQTT publish error (%s): %v", ev.Type, token.Error())
		}
	}
}

// subscribeFeedback delivers every feedback event to handle.
func subscribeFeedback(client mqtt.Client, topic, component string, handle func(feedback.Event)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var ev feedback.Event
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("%s: feedback unmarshal error: %v", component, err)
			return
		}
		handle(ev)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("%s: subscribed to %s", component, topic)
	return nil
}

func publishControl(client mqtt.Client, topic string, c feedback.Control) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("control marshal: %w", err)
	}
	if token := client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}
