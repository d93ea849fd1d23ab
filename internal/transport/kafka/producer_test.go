package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/transport/kafka"
)

func notification() domain.Notification {
	return domain.Notification{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		Ref:       domain.DispatchRef(uuid.New()),
		OldStatus: "assigned",
		NewStatus: "in_transit",
		Priority:  domain.PriorityMedium,
		Title:     "Dispatch status changed",
		Message:   "Dispatch DISP-20250310-0001 moved to In Transit",
		CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestProducer_Publish(t *testing.T) {
	t.Parallel()

	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)
	n := notification()

	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		require.Equal(t, "dispatch.notifications", msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		require.Equal(t, n.Ref.ID.String(), string(key))

		raw, err := msg.Value.Encode()
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(raw, &got))
		require.Equal(t, "in_transit", got["new_status"])
		require.Equal(t, "medium", got["priority"])
		require.NotContains(t, got, "Attempts")
		return nil
	})

	p := kafka.NewProducerWith(mp, "dispatch.notifications")
	require.NoError(t, p.Publish(context.Background(), n))
	require.NoError(t, p.Close())
}

func TestProducer_PublishFailure(t *testing.T) {
	t.Parallel()

	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mp := mocks.NewSyncProducer(t, cfg)
	sentinel := errors.New("leader not available")
	mp.ExpectSendMessageAndFail(sentinel)

	p := kafka.NewProducerWith(mp, "dispatch.notifications")
	err := p.Publish(context.Background(), notification())
	require.ErrorIs(t, err, sentinel)
	require.NoError(t, p.Close())
}

func TestProducer_CancelledContext(t *testing.T) {
	t.Parallel()

	mp := mocks.NewSyncProducer(t, nil)
	p := kafka.NewProducerWith(mp, "dispatch.notifications")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Publish(ctx, notification()), context.Canceled)
	require.NoError(t, p.Close())
}

func TestNewProducer_SkipsWhenNotConfigured(t *testing.T) {
	t.Parallel()

	p, err := kafka.NewProducer(nil, "topic")
	require.NoError(t, err)
	require.Nil(t, p)
	require.NoError(t, p.Close())
}
