package envisalink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeClient struct {
	pahomqtt.Client

	mu        sync.Mutex
	connected bool
	published []string
	onPublish func(payload []byte)
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	c.published = append(c.published, topic)
	fn := c.onPublish
	c.mu.Unlock()
	if fn != nil {
		go fn(payload.([]byte))
	}
	return fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

type recordingHandler struct {
	mu         sync.Mutex
	zones      []ZoneEvent
	partitions []PartitionEvent
	systems    []SystemEvent
}

func (h *recordingHandler) OnZone(evt ZoneEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.zones = append(h.zones, evt)
}

func (h *recordingHandler) OnPartition(evt PartitionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.partitions = append(h.partitions, evt)
}

func (h *recordingHandler) OnSystem(evt SystemEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.systems = append(h.systems, evt)
}

func newTestMQTTLink(client pahomqtt.Client, h Handler) *MQTTLink {
	return &MQTTLink{
		client:     client,
		prefix:     "envisalink",
		ackTimeout: 200 * time.Millisecond,
		handler:    h,
		pending:    map[string]chan Ack{},
	}
}

func TestMQTTLinkSend(t *testing.T) {
	client := &fakeClient{connected: true}
	link := newTestMQTTLink(client, &recordingHandler{})

	var commands []string
	var mu sync.Mutex
	client.onPublish = func(payload []byte) {
		var cmd commandPayload
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return
		}
		mu.Lock()
		commands = append(commands, cmd.Command)
		mu.Unlock()

		// an ack for someone else first, it must be ignored
		link.handleMessage("envisalink/ack", []byte(`{"id":"other","code":"500"}`))
		ack, _ := json.Marshal(ackPayload{ID: cmd.ID, Code: "024"})
		link.handleMessage("envisalink/ack", ack)
	}

	ack, err := link.Send(context.Background(), "0301")
	require.NoError(t, err)
	require.True(t, ack.Busy())
	require.Equal(t, []string{"envisalink/command"}, client.published)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"0301"}, commands)
	require.Empty(t, link.pending)
}

func TestMQTTLinkSendNoAck(t *testing.T) {
	client := &fakeClient{connected: true}
	link := newTestMQTTLink(client, &recordingHandler{})

	_, err := link.Send(context.Background(), "0301")
	require.ErrorContains(t, err, "no acknowledgement")
}

func TestMQTTLinkSendContextDone(t *testing.T) {
	client := &fakeClient{connected: true}
	link := newTestMQTTLink(client, &recordingHandler{})
	link.ackTimeout = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := link.Send(ctx, "0301")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMQTTLinkSendNotConnected(t *testing.T) {
	link := newTestMQTTLink(&fakeClient{}, &recordingHandler{})
	_, err := link.Send(context.Background(), "0301")
	require.True(t, errors.Is(err, errNotConnected))
}

func TestMQTTLinkHandleMessage(t *testing.T) {
	h := &recordingHandler{}
	link := newTestMQTTLink(&fakeClient{}, h)

	link.handleMessage("envisalink/zone/3", []byte(`{"code":"609"}`))
	link.handleMessage("envisalink/partition/1", []byte(`{"code":"652","mode":"1"}`))
	link.handleMessage("envisalink/partition/2", []byte(`{"code":"652 3"}`))
	link.handleMessage("envisalink/system", []byte(`{"code":"631"}`))

	// ignored
	link.handleMessage("other/zone/3", []byte(`{"code":"609"}`))
	link.handleMessage("envisalink/zone/abc", []byte(`{"code":"609"}`))
	link.handleMessage("envisalink/zone/4", []byte(`not json`))
	link.handleMessage("envisalink/zone/4", []byte(`{}`))
	link.handleMessage("envisalink/ack", []byte(`{"id":"nobody","code":"500"}`))

	require.Equal(t, []ZoneEvent{{Zone: 3, Code: "609"}}, h.zones)
	require.Equal(t, []PartitionEvent{
		{Partition: 1, Code: "652", Mode: "1"},
		{Partition: 2, Code: "652", Mode: "3"},
	}, h.partitions)
	require.Len(t, h.systems, 1)
	require.Equal(t, "631", h.systems[0].Code)
}

func TestDecodeSnapshot(t *testing.T) {
	evt, err := decodeSnapshot([]byte(`{
		"system": {"code": "800"},
		"zone": {"1": {"code": "609"}, "2": {"code": "610"}},
		"partition": {"1": {"code": "652", "mode": "1"}, "2": {"code": "650"}}
	}`))
	require.NoError(t, err)
	require.Equal(t, SystemEvent{
		Code:       "800",
		Zones:      map[int]string{1: "609", 2: "610"},
		Partitions: map[int]string{1: "652 1", 2: "650"},
	}, evt)

	_, err = decodeSnapshot([]byte(`{"zone": {"one": {"code": "609"}}}`))
	require.ErrorContains(t, err, `invalid zone "one"`)

	_, err = decodeSnapshot([]byte(`[`))
	require.Error(t, err)
}

func TestMQTTLinkDrivesBridge(t *testing.T) {
	client := &fakeClient{connected: true}
	sink := newRecordingSink()
	link := newTestMQTTLink(client, nil)
	b := newTestBridge(t, link, sink, Options{
		PIN:   "1234",
		Zones: []Zone{{Number: 1, Name: "Front Door", Kind: KindDoor, Partition: 1}},
	})
	link.handler = b

	client.onPublish = func(payload []byte) {
		var cmd commandPayload
		_ = json.Unmarshal(payload, &cmd)
		ack, _ := json.Marshal(ackPayload{ID: cmd.ID, Code: "500"})
		link.handleMessage("envisalink/ack", ack)
		link.handleMessage("envisalink/partition/1", []byte(`{"code":"652","mode":"0"}`))
	}

	p, _ := b.Partition(1)
	state, ok := p.SetTargetState(context.Background(), AwayArm)
	require.True(t, ok)
	require.Equal(t, AwayArm, state)
	require.Eventually(t, func() bool {
		return p.CurrentState() == AwayArm
	}, time.Second, time.Millisecond)

	link.handleMessage("envisalink/zone/1", []byte(`{"code":"609"}`))
	closed, ok := sink.Zone(1)
	require.True(t, ok)
	require.False(t, closed)
}

func TestCodePayloadRaw(t *testing.T) {
	require.Equal(t, "652 1", codePayload{Code: "652", Mode: "1"}.raw())
	require.Equal(t, "609", codePayload{Code: "609"}.raw())
}
