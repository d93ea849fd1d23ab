package app

import (
	"fmt"

	"go.uber.org/dig"

	"trucking-dispatch-core/internal/config"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/metrics"
	"trucking-dispatch-core/internal/notify"
	"trucking-dispatch-core/internal/repository"
	"trucking-dispatch-core/internal/service/dispatch"
	"trucking-dispatch-core/internal/service/events"
	"trucking-dispatch-core/internal/transport/kafka"
	"trucking-dispatch-core/internal/transport/mqtt"
)

// publisherCloser closes the notification broker connection.
type publisherCloser func() error

type publisherOut struct {
	dig.Out
	Publisher notify.Publisher
	Closer    publisherCloser
}

// newPublisher picks the notification broker. A nil Publisher disables the relay.
func newPublisher(cfg *config.Config) (publisherOut, error) {
	noop := publisherOut{Closer: func() error { return nil }}

	switch cfg.Notify.Backend {
	case config.NotifyKafka:
		p, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
		if err != nil {
			return publisherOut{}, err
		}
		if p == nil {
			return noop, nil
		}
		return publisherOut{Publisher: p, Closer: p.Close}, nil
	case config.NotifyMQTT:
		p, err := mqtt.Connect(mqtt.Config{
			Broker:      cfg.Notify.MQTTBroker,
			ClientID:    cfg.Notify.MQTTClientID,
			TopicPrefix: cfg.Notify.MQTTTopicPrefix,
		})
		if err != nil {
			return publisherOut{}, err
		}
		if p == nil {
			return noop, nil
		}
		return publisherOut{Publisher: p, Closer: p.Close}, nil
	case config.NotifyNone, "":
		return noop, nil
	default:
		return publisherOut{}, fmt.Errorf("unknown notify backend %q", cfg.Notify.Backend)
	}
}

func newRelay(
	cfg *config.Config,
	store *repository.Store,
	pub notify.Publisher,
	logger logx.Logger,
	m *metrics.Dispatch,
) *notify.Relay {
	if pub == nil {
		return nil
	}
	return notify.NewRelay(store, pub, logger, m,
		notify.WithBatch(cfg.Notify.Batch),
		notify.WithInterval(cfg.Notify.Interval),
		notify.WithMaxAttempts(cfg.Notify.MaxAttempts),
	)
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		func(svc *dispatch.Service) events.StatusChanger { return svc },
		events.NewProcessor,
		func(p *events.Processor, cfg *config.Config) kafka.HandleFunc {
			return makeStatusEventsKafka(p, 2*cfg.OperationTimeout)
		},
		func(cfg *config.Config, logger logx.Logger, h kafka.HandleFunc) (*kafka.Consumer, error) {
			return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.StatusTopic, h)
		},
		newPublisher,
		newRelay,
	)
}
