package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/shake_feedback/internal/reading"
)

// Sentence types sent by the handheld bridge, talker "SN":
//
//	$SNACC,<ms>,<x>,<y>,<z>*CS   accelerometer, m/s²
//	$SNGYR,<ms>,<x>,<y>,<z>*CS   gyroscope, rad/s
//	$SNLUX,<ms>,<lux>*CS         ambient light
const (
	TypeACC = "ACC"
	TypeGYR = "GYR"
	TypeLUX = "LUX"
)

// VectorSentence is an ACC or GYR sentence.
type VectorSentence struct {
	nmea.BaseSentence
	Millis  int64
	X, Y, Z float64
}

// LuxSentence is a LUX sentence.
type LuxSentence struct {
	nmea.BaseSentence
	Millis int64
	Lux    float64
}

var registerOnce sync.Once
var registerErr error

// registerSentences installs the bridge sentence parsers into go-nmea.
func registerSentences() error {
	registerOnce.Do(func() {
		for _, typ := range []string{TypeACC, TypeGYR} {
			if err := nmea.RegisterParser(typ, parseVector); err != nil {
				registerErr = err
				return
			}
		}
		registerErr = nmea.RegisterParser(TypeLUX, parseLux)
	})
	return registerErr
}

func parseVector(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	return VectorSentence{
		BaseSentence: s,
		Millis:       p.Int64(0, "timestamp"),
		X:            p.Float64(1, "x"),
		Y:            p.Float64(2, "y"),
		Z:            p.Float64(3, "z"),
	}, p.Err()
}

func parseLux(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	return LuxSentence{
		BaseSentence: s,
		Millis:       p.Int64(0, "timestamp"),
		Lux:          p.Float64(1, "lux"),
	}, p.Err()
}

// ParseSentence parses one bridge line into a reading.
func ParseSentence(line string) (reading.Reading, error) {
	if err := registerSentences(); err != nil {
		return nil, fmt.Errorf("register bridge sentences: %w", err)
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return nil, err
	}

	switch m := sentence.(type) {
	case VectorSentence:
		v := reading.Vec3{X: float32(m.X), Y: float32(m.Y), Z: float32(m.Z)}
		if m.DataType() == TypeACC {
			return reading.Accel{Vec3: v, At: m.Millis}, nil
		}
		return reading.Gyro{Vec3: v, At: m.Millis}, nil
	case LuxSentence:
		return reading.Light{Lux: float32(m.Lux), At: m.Millis}, nil
	default:
		return nil, fmt.Errorf("unexpected sentence type %q", sentence.DataType())
	}
}

// SerialSource reads bridge sentences from a serial port.
type SerialSource struct {
	reader *bufio.Reader
	closer io.Closer

	skipped int // sentences that failed to parse
}

// NewSerialSource opens the serial port of the bridge.
func NewSerialSource(portName string, baudRate int) (*SerialSource, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	log.Printf("serial: bridge port opened on %s at %d baud", portName, baudRate)
	return newLineSource(port, port), nil
}

func newLineSource(r io.Reader, c io.Closer) *SerialSource {
	return &SerialSource{reader: bufio.NewReader(r), closer: c}
}

// Next returns the next well-formed reading; noise and partial lines are
// skipped.
func (s *SerialSource) Next() (reading.Reading, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "$") {
			r, perr := ParseSentence(line)
			if perr == nil {
				return r, nil
			}
			s.skipped++
			if s.skipped%100 == 1 {
				log.Printf("serial: parse error: %v (line: %q), %d skipped", perr, line, s.skipped)
			}
		}

		if err == io.EOF {
			return nil, io.EOF
		}
	}
}

// Close closes the serial port.
func (s *SerialSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
