// Package kafkaconsumer drains the legacy backend's item-mutation topic and
// drops the cached upstream responses the mutations make stale.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/wowedo/searchsync/internal/invalidation"
	mylog "github.com/wowedo/searchsync/internal/logger"
	"github.com/wowedo/searchsync/internal/observability"
	"github.com/wowedo/searchsync/internal/upstream/keys"
)

// Deleter is the cache surface the consumer needs. *redisstore.Client
// implements it.
type Deleter interface {
	DelByPrefix(ctx context.Context, prefix string) (int, error)
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	cache  Deleter
	dedupe *eventDedupe
	zlog   *zerolog.Logger
}

func New(cfg Config, logger *slog.Logger, cache Deleter) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		cache:  cache,
		dedupe: newEventDedupe(0),
	}
}

// Start joins the consumer group and processes mutations until ctx is
// cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cache == nil {
		return errors.New("kafkaconsumer: missing cache")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	base := mylog.WithComponent(context.Background(), "kafka_consumer")
	zl := mylog.Build(mylog.Config{Level: "info", Component: "kafka_consumer"}, nil)
	c.zlog = mylog.FromContext(base, &zl)

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("consumer error", "err", err)
				c.zlog.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single mutation message: decode, validate, map to
// endpoint prefixes and delete everything cached under them.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncInvalidation("unknown", "decode_error")
		mylog.FromContext(ctx, c.zlog).Error().
			Str("kind", "decode").
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("kafka error")
		return fmt.Errorf("json decode: %w", err)
	}

	if err := ev.Validate(); err != nil {
		// invalid events are logged and committed, not retried forever
		observability.IncInvalidation(ev.Op, "invalid")
		c.logger.Warn("invalid invalidation event skipped",
			"op", ev.Op, "element_type", ev.ElementType, "err", err)
		return nil
	}

	if !c.dedupe.shouldApply(ev) {
		observability.IncInvalidation(ev.Op, "duplicate")
		return nil
	}

	deleted := 0
	for _, ep := range ev.Endpoints() {
		n, err := c.cache.DelByPrefix(ctx, keys.EndpointPrefix(ep))
		if err != nil {
			observability.IncInvalidation(ev.Op, "redis_error")
			mylog.FromContext(ctx, c.zlog).Error().
				Str("kind", "redis_del").
				Str("endpoint", ep).
				Str("topic", msg.Topic).
				Int32("partition", msg.Partition).
				Msg("kafka error")
			return fmt.Errorf("del by prefix %s: %w", ep, err)
		}
		deleted += n
	}

	observability.IncInvalidation(ev.Op, "applied")
	c.logger.Debug("invalidated cached responses",
		"op", ev.Op, "element_type", ev.ElementType, "item_id", ev.ItemID, "keys", deleted)

	mylog.FromContext(ctx, c.zlog).Info().
		Str("event", "invalidation").
		Str("op", ev.Op).
		Str("element_type", ev.ElementType).
		Int("keys", deleted).
		Msg("invalidated cached responses")

	return nil
}
