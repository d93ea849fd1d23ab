package mqtt_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/transport/mqtt"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	token        paho.Token
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func notification() domain.Notification {
	return domain.Notification{
		ID:        uuid.New(),
		TenantID:  uuid.MustParse("7b0c3a52-6f55-4a57-9d6e-0f3d8a3c1e11"),
		Ref:       domain.AssignmentRef(uuid.New()),
		OldStatus: "assigned",
		NewStatus: "on_duty",
		Priority:  domain.PriorityMedium,
		Title:     "Assignment status changed",
		CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	c := &fakeClient{connected: true, token: doneToken(nil)}
	p := mqtt.NewPublisherWith(c, "/fleet/", time.Second)
	n := notification()

	require.NoError(t, p.Publish(context.Background(), n))
	require.Len(t, c.sent, 1)
	require.Equal(t, "fleet/7b0c3a52-6f55-4a57-9d6e-0f3d8a3c1e11/assignment", c.sent[0].topic)
	require.Equal(t, byte(1), c.sent[0].qos)

	var got domain.Notification
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &got))
	require.Equal(t, n.ID, got.ID)
	require.Equal(t, "on_duty", got.NewStatus)
}

func TestPublisher_DefaultPrefix(t *testing.T) {
	t.Parallel()

	p := mqtt.NewPublisherWith(&fakeClient{}, "", 0)
	n := notification()
	require.Equal(t, "dispatch/"+n.TenantID.String()+"/assignment", p.Topic(n))
}

func TestPublisher_NotConnected(t *testing.T) {
	t.Parallel()

	c := &fakeClient{}
	p := mqtt.NewPublisherWith(c, "fleet", time.Second)

	require.ErrorIs(t, p.Publish(context.Background(), notification()), mqtt.ErrNotConnected)
	require.Empty(t, c.sent)
}

func TestPublisher_BrokerError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("not authorized")
	c := &fakeClient{connected: true, token: doneToken(sentinel)}
	p := mqtt.NewPublisherWith(c, "fleet", time.Second)

	require.ErrorIs(t, p.Publish(context.Background(), notification()), sentinel)
}

func TestPublisher_Timeout(t *testing.T) {
	t.Parallel()

	c := &fakeClient{connected: true, token: &fakeToken{done: make(chan struct{})}}
	p := mqtt.NewPublisherWith(c, "fleet", 10*time.Millisecond)

	err := p.Publish(context.Background(), notification())
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout")
}

func TestPublisher_Close(t *testing.T) {
	t.Parallel()

	c := &fakeClient{connected: true}
	p := mqtt.NewPublisherWith(c, "fleet", time.Second)
	require.NoError(t, p.Close())
	require.True(t, c.disconnected)

	var nilPub *mqtt.Publisher
	require.NoError(t, nilPub.Close())
}

func TestConnect_SkipsWithoutBroker(t *testing.T) {
	t.Parallel()

	p, err := mqtt.Connect(mqtt.Config{})
	require.NoError(t, err)
	require.Nil(t, p)
}
