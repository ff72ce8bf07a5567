package sink

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/FilipeMaia/scopeflow/internal/domain"
	"github.com/FilipeMaia/scopeflow/internal/ports"
)

const connectTimeout = 10 * time.Second

// StreamOptions configures the live MQTT waveform stream.
type StreamOptions struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	// Decimation publishes every Nth capture. 1 streams everything.
	Decimation int
	// Buffer bounds the number of unsent payloads kept while the broker
	// is slow. The oldest payload is dropped when the buffer fills.
	Buffer int
}

// StreamSink publishes captures to an MQTT broker without ever blocking
// the acquisition loop on the network.
type StreamSink struct {
	client mqtt.Client
	topic  string
	qos    byte
	every  int

	mu      sync.Mutex
	pending [][]byte
	cap     int

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

type streamPayload struct {
	CaptureIndex int       `json:"capture_index"`
	CapturedAt   time.Time `json:"captured_at"`
	RateHz       float64   `json:"rate_hz"`
	DurationSec  float64   `json:"duration_seconds"`
	Times        []float64 `json:"times"`
	Voltages     []float64 `json:"voltages"`
}

func NewStreamSink(opts StreamOptions) (*StreamSink, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("stream broker is required")
	}
	if opts.Decimation < 1 {
		opts.Decimation = 1
	}
	if opts.Buffer < 1 {
		opts.Buffer = 64
	}
	if opts.ClientID == "" {
		opts.ClientID = "scopeflow-" + randomHex(4)
	}
	if opts.Topic == "" {
		opts.Topic = "scopeflow/waveform"
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect %s: timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Broker, err)
	}

	s := &StreamSink{
		client: client,
		topic:  opts.Topic,
		qos:    opts.QoS,
		every:  opts.Decimation,
		cap:    opts.Buffer,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.publishLoop()
	return s, nil
}

func (s *StreamSink) Name() string { return "mqtt" }

func (s *StreamSink) Publish(c *domain.Capture) error {
	if (c.Index-1)%s.every != 0 {
		return nil
	}
	payload, err := json.Marshal(streamPayload{
		CaptureIndex: c.Index,
		CapturedAt:   c.CapturedAt,
		RateHz:       c.RateHz,
		DurationSec:  c.Duration.Seconds(),
		Times:        c.Times,
		Voltages:     c.Voltages,
	})
	if err != nil {
		return fmt.Errorf("marshal capture %d: %w", c.Index, err)
	}

	s.enqueue(payload)
	select {
	case s.kick <- struct{}{}:
	default:
	}
	return nil
}

func (s *StreamSink) enqueue(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= s.cap {
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, payload)
}

func (s *StreamSink) dequeue() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	payload := s.pending[0]
	s.pending = append(s.pending[:0], s.pending[1:]...)
	return payload, true
}

func (s *StreamSink) publishLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.kick:
		}
		for {
			payload, ok := s.dequeue()
			if !ok {
				break
			}
			token := s.client.Publish(s.topic, s.qos, false, payload)
			token.Wait()
		}
	}
}

// Close stops the publisher and disconnects from the broker. Payloads
// still pending are discarded.
func (s *StreamSink) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	s.wg.Wait()
	s.client.Disconnect(250)
	return nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "00000000"[:n*2]
	}
	return hex.EncodeToString(b)
}

var _ ports.Sink = (*StreamSink)(nil)
