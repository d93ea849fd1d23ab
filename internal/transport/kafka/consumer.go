package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/service/events"
)

// ClientID tags the worker's connections on the brokers.
const ClientID = "dispatch-worker"

// HandleFunc applies one status event. Errors wrapped with Permanent are
// logged and committed, any other error redelivers the message.
type HandleFunc func(context.Context, events.Event) error

var newConsumerGroup = sarama.NewConsumerGroup

// Consumer reads dispatch status events from one topic as a consumer group member.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler HandleFunc
	logger  logx.Logger
	backoff time.Duration
}

// NewConsumer returns nil, nil when brokers, group or topic are not configured.
func NewConsumer(logger logx.Logger, brokers []string, groupID, topic string, h HandleFunc) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logx.Nop()
	}

	group, err := newConsumerGroup(brokers, groupID, consumerConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group %s: %w", groupID, err)
	}

	return &Consumer{
		group:   group,
		topic:   topic,
		handler: h,
		logger:  logger.With(logx.String("topic", topic), logx.String("group", groupID)),
		backoff: time.Second,
	}, nil
}

func consumerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = ClientID
	// статусы одного рейса идут в одну партицию, новые участники группы не должны её отбирать лишний раз
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Offsets.AutoCommit.Interval = time.Second
	return cfg
}

// Run consumes until ctx is done. A failed handler ends the session, the
// group rejoins after backoff and the uncommitted message is read again.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}
	for {
		err := c.group.Consume(ctx, []string{c.topic}, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			continue
		}

		c.logger.Warn("kafka consume error", logx.Err(err), logx.Duration("backoff", c.backoff))
		t := time.NewTimer(c.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Close leaves the group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handle(sess.Context(), msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

// handle returns an error only when the message must be redelivered.
func (h *groupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	log := h.c.logger.With(logx.Int64("offset", msg.Offset), logx.Int("partition", int(msg.Partition)))

	var dto EventDTO
	if err := json.Unmarshal(msg.Value, &dto); err != nil {
		log.Warn("kafka bad json", logx.Err(err))
		return nil
	}
	ev, err := ToDomain(dto)
	if err != nil {
		log.Warn("kafka invalid event", logx.Err(err), logx.String("event_id", dto.EventID))
		return nil
	}

	log = log.With(logx.Stringer("dispatch_id", ev.DispatchID), logx.String("status", ev.Status))
	err = h.c.handler(ctx, ev)
	switch {
	case err == nil:
		return nil
	case IsPermanent(err):
		log.Warn("kafka handle failed, skipping message", logx.Err(err))
		return nil
	default:
		log.Error("kafka handle failed, retry", logx.Err(err))
		return err
	}
}
