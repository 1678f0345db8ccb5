package envisalink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	defaultTopicPrefix = "envisalink"
	defaultAckTimeout  = 10 * time.Second
	qos                = 1
)

var errNotConnected = errors.New("not connected to the broker")

// MQTTConfig configures the connection to the broker the panel proxy
// publishes to.
type MQTTConfig struct {
	Broker      string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
	AckTimeout  time.Duration
}

// MQTTLink is a Link backed by a panel proxy speaking MQTT.
//
// The proxy publishes status codes to <prefix>/zone/<n>,
// <prefix>/partition/<n> and <prefix>/system, reads commands from
// <prefix>/command and answers each one on <prefix>/ack.
type MQTTLink struct {
	client     pahomqtt.Client
	prefix     string
	ackTimeout time.Duration
	handler    Handler

	sendLock sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Ack
}

type codePayload struct {
	Code string `json:"code"`
	Mode string `json:"mode,omitempty"`
}

// raw rebuilds the raw proxy code, e.g. "652 1", understood by ParseStatusCode.
func (p codePayload) raw() string {
	if p.Mode == "" || len(p.Code) != 3 {
		return p.Code
	}
	return p.Code + " " + p.Mode
}

type snapshotPayload struct {
	System    *codePayload           `json:"system,omitempty"`
	Code      string                 `json:"code,omitempty"`
	Zone      map[string]codePayload `json:"zone,omitempty"`
	Partition map[string]codePayload `json:"partition,omitempty"`
}

type commandPayload struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

type ackPayload struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// NewMQTTLink creates a link. It does not connect, see Connect.
func NewMQTTLink(cfg MQTTConfig) *MQTTLink {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = defaultTopicPrefix
	}
	if cfg.AckTimeout == 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "homekit-envisalink-" + uuid.NewString()[:8]
	}
	l := &MQTTLink{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		ackTimeout: cfg.AckTimeout,
		pending:    map[string]chan Ack{},
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			log.Info("connected to broker", "broker", cfg.Broker)
			l.subscribe(c)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Warn("connection to broker lost", "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	l.client = pahomqtt.NewClient(opts)
	return l
}

// Connect connects to the broker, retrying until ctx is done, and starts
// delivering panel events to h.
func (l *MQTTLink) Connect(ctx context.Context, h Handler) error {
	l.handler = h
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = time.Second * 5
	bo.MaxElapsedTime = time.Minute

	return backoff.RetryNotify(func() error {
		token := l.client.Connect()
		if !token.WaitTimeout(l.ackTimeout) {
			return fmt.Errorf("could not connect: timeout after %s", l.ackTimeout)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("could not connect: %w", err)
		}
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		log.Error("broker connection failed", "err", err, "retry", d)
	})
}

// Close disconnects from the broker.
func (l *MQTTLink) Close() error {
	l.client.Disconnect(1000)
	return nil
}

func (l *MQTTLink) topic(parts ...string) string {
	return strings.Join(append([]string{l.prefix}, parts...), "/")
}

func (l *MQTTLink) subscribe(c pahomqtt.Client) {
	filters := map[string]byte{
		l.topic("zone", "+"):      qos,
		l.topic("partition", "+"): qos,
		l.topic("system"):         qos,
		l.topic("ack"):            qos,
	}
	token := c.SubscribeMultiple(filters, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		l.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(l.ackTimeout) {
		log.Error("could not subscribe: timeout")
		return
	}
	if err := token.Error(); err != nil {
		log.Error("could not subscribe", "err", err)
	}
}

// Send publishes a command and waits for the proxy to acknowledge it.
// Only one command is in flight at a time.
func (l *MQTTLink) Send(ctx context.Context, command string) (Ack, error) {
	l.sendLock.Lock()
	defer l.sendLock.Unlock()

	if l.client == nil || !l.client.IsConnected() {
		return "", errNotConnected
	}

	id := uuid.NewString()
	ch := make(chan Ack, 1)
	l.mu.Lock()
	l.pending[id] = ch
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.pending, id)
		l.mu.Unlock()
	}()

	payload, err := json.Marshal(commandPayload{ID: id, Command: command})
	if err != nil {
		return "", fmt.Errorf("could not encode command: %w", err)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.RetryNotify(func() error {
		token := l.client.Publish(l.topic("command"), qos, false, payload)
		if !token.WaitTimeout(l.ackTimeout) {
			return fmt.Errorf("publish timeout after %s", l.ackTimeout)
		}
		return token.Error()
	}, bo, func(err error, _ time.Duration) {
		log.Warn("command publish failed", "id", id, "err", err)
	}); err != nil {
		return "", fmt.Errorf("could not send command: %w", err)
	}
	log.Debug("command sent", "id", id)

	timer := time.NewTimer(l.ackTimeout)
	defer timer.Stop()
	select {
	case ack := <-ch:
		log.Debug("command acknowledged", "id", id, "ack", ack)
		return ack, nil
	case <-timer.C:
		return "", fmt.Errorf("no acknowledgement after %s", l.ackTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *MQTTLink) handleMessage(topic string, payload []byte) {
	rest, ok := strings.CutPrefix(topic, l.prefix+"/")
	if !ok {
		return
	}
	kind, number, _ := strings.Cut(rest, "/")

	switch kind {
	case "ack":
		var ack ackPayload
		if err := json.Unmarshal(payload, &ack); err != nil {
			log.Warn("invalid ack", "payload", string(payload), "err", err)
			return
		}
		l.mu.Lock()
		ch, ok := l.pending[ack.ID]
		l.mu.Unlock()
		if !ok {
			log.Debug("ack for unknown command", "id", ack.ID)
			return
		}
		select {
		case ch <- Ack(ack.Code):
		default:
		}
	case "zone", "partition":
		n, err := strconv.Atoi(number)
		if err != nil {
			log.Warn("invalid topic", "topic", topic)
			return
		}
		code, mode, err := decodeCode(payload)
		if err != nil {
			log.Warn("invalid status", "topic", topic, "err", err)
			return
		}
		if kind == "zone" {
			l.handler.OnZone(ZoneEvent{Zone: n, Code: code, Mode: mode})
			return
		}
		l.handler.OnPartition(PartitionEvent{Partition: n, Code: code, Mode: mode})
	case "system":
		evt, err := decodeSnapshot(payload)
		if err != nil {
			log.Warn("invalid system status", "err", err)
			return
		}
		l.handler.OnSystem(evt)
	}
}

func decodeCode(payload []byte) (string, string, error) {
	var p codePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", "", fmt.Errorf("could not decode status: %w", err)
	}
	if p.Code == "" {
		return "", "", fmt.Errorf("missing code")
	}
	code, mode := ParseStatusCode(p.Code)
	if p.Mode != "" {
		mode = p.Mode
	}
	return code, mode, nil
}

func decodeSnapshot(payload []byte) (SystemEvent, error) {
	var p snapshotPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return SystemEvent{}, fmt.Errorf("could not decode snapshot: %w", err)
	}
	evt := SystemEvent{
		Code:       p.Code,
		Zones:      map[int]string{},
		Partitions: map[int]string{},
	}
	if p.System != nil {
		evt.Code = p.System.Code
	}
	for k, v := range p.Zone {
		n, err := strconv.Atoi(k)
		if err != nil {
			return SystemEvent{}, fmt.Errorf("invalid zone %q: %w", k, err)
		}
		evt.Zones[n] = v.raw()
	}
	for k, v := range p.Partition {
		n, err := strconv.Atoi(k)
		if err != nil {
			return SystemEvent{}, fmt.Errorf("invalid partition %q: %w", k, err)
		}
		evt.Partitions[n] = v.raw()
	}
	return evt, nil
}
