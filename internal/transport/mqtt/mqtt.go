// Package mqtt implements the MQTT transport for AgriSaarthi.
//
// Field kiosks and IoT devices publish JSON farmer requests to
// agrisaarthi/requests/<device>. The transport answers on the request's
// reply_to topic, or on <response_prefix>/<device> when none is given.
// Audio and image payloads are base64 strings, as in the JSON HTTP body.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/message"
	"github.com/nadzzz/agrisaarthi/internal/metrics"
	"github.com/nadzzz/agrisaarthi/internal/transport"
)

const (
	qos            = 1
	disconnectWait = 250 // milliseconds
	publishTimeout = 10 * time.Second
)

// envelope is the request payload: a farmer request plus routing.
type envelope struct {
	message.Request
	ReplyTo string `json:"reply_to,omitempty"`
}

// Transport implements transport.Transport over MQTT.
type Transport struct {
	cfg    config.MQTTConfig
	client paho.Client

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// New creates a new MQTT transport.
func New(cfg config.MQTTConfig) *Transport {
	return &Transport{cfg: cfg}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen connects to the MQTT broker and subscribes to the request topic.
// It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	// In-flight requests outlive the listener so Close can drain them.
	reqCtx := context.WithoutCancel(ctx)
	onMessage := func(c paho.Client, m paho.Message) {
		if !t.track() {
			slog.Debug("mqtt message dropped during shutdown", "topic", m.Topic())
			return
		}
		defer t.wg.Done()

		topic, body := process(reqCtx, svc, t.cfg.ResponsePrefix, m.Topic(), m.Payload())
		tok := c.Publish(topic, qos, false, body)
		if !tok.WaitTimeout(publishTimeout) {
			slog.Warn("mqtt publish timed out", "topic", topic)
			return
		}
		if err := tok.Error(); err != nil {
			slog.Error("mqtt publish failed", "topic", topic, "error", err)
		}
	}

	opts := paho.NewClientOptions().
		AddBroker(t.cfg.Broker).
		SetClientID(t.cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt connection lost", "error", err)
		}).
		SetOnConnectHandler(func(c paho.Client) {
			// Subscriptions do not survive a clean-session reconnect.
			tok := c.Subscribe(t.cfg.Topic, qos, onMessage)
			tok.Wait()
			if err := tok.Error(); err != nil {
				slog.Error("mqtt subscribe failed", "topic", t.cfg.Topic, "error", err)
				return
			}
			slog.Info("mqtt subscribed", "topic", t.cfg.Topic)
		})

	t.client = paho.NewClient(opts)
	tok := t.client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return nil
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", t.cfg.Broker, err)
	}

	slog.Info("mqtt transport listening", "broker", t.cfg.Broker, "topic", t.cfg.Topic)
	<-ctx.Done()
	return nil
}

// track registers an in-flight message. It reports false once Close has
// started, and the message must then be dropped.
func (t *Transport) track() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closing {
		return false
	}
	t.wg.Add(1)
	return true
}

// Close stops taking requests, unsubscribes, and disconnects from the
// broker after in-flight replies are sent.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closing = true
	t.mu.Unlock()

	if t.client != nil && t.client.IsConnected() {
		tok := t.client.Unsubscribe(t.cfg.Topic)
		if !tok.WaitTimeout(publishTimeout) {
			slog.Warn("mqtt unsubscribe timed out", "topic", t.cfg.Topic)
		} else if err := tok.Error(); err != nil {
			slog.Warn("mqtt unsubscribe failed", "topic", t.cfg.Topic, "error", err)
		}
	}
	t.wg.Wait()

	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(disconnectWait)
	}
	return nil
}

// process handles one request payload and returns the reply topic and body.
// Every payload gets a reply; failures reply with an ErrorResponse.
func process(ctx context.Context, svc transport.Service, prefix, topic string, payload []byte) (string, []byte) {
	const route = "farmer-agent"
	start := time.Now()

	var env envelope
	err := transport.DecodeFarmerRequest(payload, &env)
	replyTopic := replyTopicFor(prefix, topic, env.ReplyTo)

	var result *message.AgentResult
	if err == nil {
		env.Request.Timestamp = start
		result, err = svc.FarmerAgent(ctx, &env.Request)
	}
	metrics.RequestsTotal.WithLabelValues(route, transport.Outcome(err)).Inc()
	metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

	var body []byte
	if err != nil {
		slog.Warn("mqtt request failed", "topic", topic, "error", err)
		body, _ = json.Marshal(message.ErrorResponse{Error: err.Error()})
	} else if body, err = json.Marshal(result); err != nil {
		body, _ = json.Marshal(message.ErrorResponse{Error: err.Error()})
	}
	return replyTopic, body
}

// replyTopicFor picks the reply topic. An explicit reply_to wins unless it
// contains wildcards, which cannot be published to.
func replyTopicFor(prefix, topic, replyTo string) string {
	if replyTo = strings.TrimSpace(replyTo); replyTo != "" && !strings.ContainsAny(replyTo, "+#") {
		return replyTo
	}
	device := topic
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		device = topic[i+1:]
	}
	if device == "" {
		device = "unknown"
	}
	return strings.TrimSuffix(prefix, "/") + "/" + device
}
