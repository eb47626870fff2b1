package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Sensor source kinds for SENSOR_SOURCE.
const (
	SourceMock     = "mock"
	SourceHardware = "hardware"
	SourceSerial   = "serial"
	SourceReplay   = "replay"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker              string
	MQTTClientIDInterpreter string
	MQTTClientIDProducer    string
	MQTTClientIDConsole     string
	MQTTClientIDWeb         string
	MQTTClientIDDisplay     string

	// Topics
	TopicAccel    string
	TopicGyro     string
	TopicLight    string
	TopicFeedback string
	TopicControl  string

	// Sensor source: "mock", "hardware", "serial" or "replay"
	SensorSource string

	// IMU Hardware (MPU9250 over SPI)
	IMUSPIDevice string
	IMUCSPin     string

	// Light sensor (photoresistor on an ADS1115 channel)
	LightI2CBus     string
	LightI2CAddr    uint16
	LightADCChannel int
	LightLuxPerVolt float64

	// Serial bridge
	SerialPort     string
	SerialBaudRate int

	// Replay
	ReplayFile string
	ReplayLoop bool

	// Timing
	IMUSampleInterval   int // milliseconds
	LightSampleInterval int // milliseconds

	// Session
	InitialSensitivity float64
	GyroEnabled        bool

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// globalConfig is set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		MQTTBroker:              "tcp://localhost:1883",
		MQTTClientIDInterpreter: "shake-interpreter",
		MQTTClientIDProducer:    "shake-sensor-producer",
		MQTTClientIDConsole:     "shake-console",
		MQTTClientIDWeb:         "shake-web",
		MQTTClientIDDisplay:     "shake-display",

		TopicAccel:    "shake/sensor/accelerometer",
		TopicGyro:     "shake/sensor/gyroscope",
		TopicLight:    "shake/sensor/light",
		TopicFeedback: "shake/feedback",
		TopicControl:  "shake/control",

		SensorSource: SourceMock,

		IMUSPIDevice: "/dev/spidev0.0",
		IMUCSPin:     "8",

		LightI2CBus:     "1",
		LightI2CAddr:    0x48,
		LightADCChannel: 0,
		LightLuxPerVolt: 200,

		SerialBaudRate: 115200,

		IMUSampleInterval:   60,
		LightSampleInterval: 200,

		InitialSensitivity: 10,

		WebServerPort: 8080,

		DisplayI2CBus:         "1",
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 100,
	}
}

// Load reads the configuration file on top of Default().
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_INTERPRETER":
		c.MQTTClientIDInterpreter = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ACCEL":
		c.TopicAccel = value
	case "TOPIC_GYRO":
		c.TopicGyro = value
	case "TOPIC_LIGHT":
		c.TopicLight = value
	case "TOPIC_FEEDBACK":
		c.TopicFeedback = value
	case "TOPIC_CONTROL":
		c.TopicControl = value

	case "SENSOR_SOURCE":
		switch value {
		case SourceMock, SourceHardware, SourceSerial, SourceReplay:
			c.SensorSource = value
		default:
			return fmt.Errorf("SENSOR_SOURCE must be one of mock, hardware, serial, replay, got %q", value)
		}

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value

	// Light sensor
	case "LIGHT_I2C_BUS":
		c.LightI2CBus = value
	case "LIGHT_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid LIGHT_I2C_ADDR %q: %w", value, err)
		}
		c.LightI2CAddr = uint16(addr)
	case "LIGHT_ADC_CHANNEL":
		ch, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LIGHT_ADC_CHANNEL %q: %w", value, err)
		}
		if ch < 0 || ch > 3 {
			return fmt.Errorf("LIGHT_ADC_CHANNEL must be 0-3, got %d", ch)
		}
		c.LightADCChannel = ch
	case "LIGHT_LUX_PER_VOLT":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid LIGHT_LUX_PER_VOLT %q: %w", value, err)
		}
		c.LightLuxPerVolt = f

	// Serial bridge
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// Replay
	case "REPLAY_FILE":
		c.ReplayFile = value
	case "REPLAY_LOOP":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid REPLAY_LOOP %q: %w", value, err)
		}
		c.ReplayLoop = b

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.IMUSampleInterval = interval
	case "LIGHT_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LIGHT_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.LightSampleInterval = interval

	// Session
	case "INITIAL_SENSITIVITY":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid INITIAL_SENSITIVITY %q: %w", value, err)
		}
		if f < 0 {
			return fmt.Errorf("INITIAL_SENSITIVITY must be >= 0, got %v", f)
		}
		c.InitialSensitivity = f
	case "GYRO_ENABLED":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_ENABLED %q: %w", value, err)
		}
		c.GyroEnabled = b

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicAccel == "" || c.TopicGyro == "" || c.TopicLight == "" {
		return fmt.Errorf("TOPIC_ACCEL, TOPIC_GYRO and TOPIC_LIGHT are required")
	}
	if c.TopicFeedback == "" {
		return fmt.Errorf("TOPIC_FEEDBACK is required")
	}
	if c.TopicControl == "" {
		return fmt.Errorf("TOPIC_CONTROL is required")
	}
	switch c.SensorSource {
	case SourceHardware:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for hardware source")
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for serial source")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive")
		}
	case SourceReplay:
		if c.ReplayFile == "" {
			return fmt.Errorf("REPLAY_FILE is required for replay source")
		}
	}
	if c.IMUSampleInterval <= 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL must be positive")
	}
	if c.LightSampleInterval <= 0 {
		return fmt.Errorf("LIGHT_SAMPLE_INTERVAL must be positive")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return nil.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
