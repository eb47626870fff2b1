// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/shake_feedback/internal/config"
	"github.com/relabs-tech/shake_feedback/internal/reading"
	"github.com/relabs-tech/shake_feedback/internal/sensors"
)

// topicFor returns the sensor topic that carries channel ch.
func topicFor(cfg *config.Config, ch reading.Channel) (string, error) {
	switch ch {
	case reading.ChannelAccelerometer:
		return cfg.TopicAccel, nil
	case reading.ChannelGyroscope:
		return cfg.TopicGyro, nil
	case reading.ChannelLight:
		return cfg.TopicLight, nil
	default:
		return "", fmt.Errorf("%w: %q", reading.ErrUnknownChannel, ch)
	}
}

// RunSensorProducer publishes readings from the configured source to the
// sensor topics until the source ends or the process is interrupted.
func RunSensorProducer() error {
	log.Println("starting sensor producer")

	cfg := config.Get()

	src, err := sensors.Open(cfg)
	if err != nil {
		return fmt.Errorf("open sensor source: %w", err)
	}
	defer sensors.Close(src)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("producer: shutting down")
		close(done)
	}()

	return publishReadings(cfg, src, pacerFor(cfg)(), client, done)
}

func publishReadings(cfg *config.Config, src sensors.Source, pace pacer, client mqtt.Client, done <-chan struct{}) error {
	var (
		published int
		lastLog   = time.Now()
	)

	for {
		select {
		case <-done:
			return nil
		default:
		}

		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			log.Printf("producer: source exhausted after %d readings", published)
			return nil
		}
		if err != nil {
			log.Printf("producer: read error: %v", err)
			if !sleepOrDone(100*time.Millisecond, done) {
				return nil
			}
			continue
		}

		if !pace(r, done) {
			return nil
		}

		topic, err := topicFor(cfg, r.Channel())
		if err != nil {
			log.Printf("producer: %v", err)
			continue
		}

		payload, err := json.Marshal(reading.FromReading(r))
		if err != nil {
			log.Printf("producer: json marshal error (%s): %v", r.Channel(), err)
			continue
		}
		if token := client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", topic, token.Error())
			continue
		}

		published++
		if time.Since(lastLog) >= 5*time.Second {
			log.Printf("producer: %d readings published", published)
			lastLog = time.Now()
		}
	}
}
