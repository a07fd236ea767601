package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AwesomeDJG/UngaaBoard/internal/badges"
	"github.com/AwesomeDJG/UngaaBoard/pkg/kafka"
	"github.com/AwesomeDJG/UngaaBoard/pkg/logging"
)

// Topics carrying board activity that should re-evaluate a user's badges
const (
	TopicPostCreated   = "post.created"
	TopicFollowCreated = "follow.created"
)

// TriggerEvent is the payload the board publishes when activity occurs
type TriggerEvent struct {
	UserID     string    `json:"user_id"`
	PostID     string    `json:"post_id,omitempty"`
	FollowerID string    `json:"follower_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Processor consumes activity events and feeds them to the award engine.
// Delivery is at least once: a fatal evaluation failure leaves the offset
// uncommitted and the event is redelivered; per-badge write failures are
// non-fatal and resolved by whichever trigger comes next.
type Processor struct {
	engine   *badges.Engine
	logger   logging.Logger
	messages *prometheus.CounterVec
}

// NewProcessor creates a trigger event processor. messages may be nil.
func NewProcessor(engine *badges.Engine, logger logging.Logger, messages *prometheus.CounterVec) *Processor {
	return &Processor{engine: engine, logger: logger, messages: messages}
}

// Register subscribes the processor's topics on the consumer
func (p *Processor) Register(consumer *kafka.Consumer) {
	consumer.AddHandler(TopicPostCreated, p.HandleMessage)
	consumer.AddHandler(TopicFollowCreated, p.HandleMessage)
}

// HandleMessage processes a single trigger event
func (p *Processor) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event TriggerEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.UserID == "" {
		// Malformed events are permanent failures; committing them beats
		// blocking the partition forever.
		p.logger.WithFields(logging.Fields{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("Dropping malformed trigger event")
		p.count(msg.Topic, "dropped")
		return nil
	}

	trigger := triggerType(msg.Topic)
	result, err := p.engine.CheckAndAward(ctx, event.UserID, trigger)
	if err != nil {
		p.count(msg.Topic, "error")
		return fmt.Errorf("badge evaluation for user %s: %w", event.UserID, err)
	}

	p.count(msg.Topic, "processed")
	if len(result.Awarded) > 0 {
		p.logger.WithFields(logging.Fields{
			"user_id": event.UserID,
			"trigger": trigger,
			"awarded": len(result.Awarded),
		}).Info("Trigger event awarded badges")
	}
	return nil
}

func (p *Processor) count(topic, status string) {
	if p.messages != nil {
		p.messages.WithLabelValues(topic, "consume", status).Inc()
	}
}

func triggerType(topic string) string {
	switch topic {
	case TopicPostCreated:
		return "post_created"
	case TopicFollowCreated:
		return "follow_created"
	default:
		return topic
	}
}
