package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/intelevision/internal/log"
	"github.com/ayusman/intelevision/internal/snapshot"
)

const (
	// DefaultQueueSize bounds snapshots waiting to be sent.
	DefaultQueueSize = 8
	publishTimeout   = 5 * time.Second
)

// Sender is the part of paho.Client the publisher needs.
type Sender interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher sends snapshots to a retained topic so late subscribers get the
// latest state from the broker.
type Publisher struct {
	sender Sender
	topic  string
	queue  chan snapshot.Snapshot

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// PublisherConfig holds configuration for the snapshot publisher.
type PublisherConfig struct {
	Topic     string
	QueueSize int
}

// NewPublisher creates a publisher writing to sender.
func NewPublisher(sender Sender, config PublisherConfig) *Publisher {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	return &Publisher{
		sender: sender,
		topic:  config.Topic,
		queue:  make(chan snapshot.Snapshot, config.QueueSize),
	}
}

// Enqueue queues snap for sending without blocking. When the queue is full
// the snapshot is dropped; a newer one will follow.
func (p *Publisher) Enqueue(snap snapshot.Snapshot) {
	select {
	case p.queue <- snap:
	default:
		p.dropped.Add(1)
	}
}

// Attach subscribes the publisher to store. Cancel the returned subscription
// to detach.
func (p *Publisher) Attach(store *snapshot.Store) *snapshot.Subscription {
	return store.Subscribe(p.Enqueue)
}

// Start sends queued snapshots until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	log.Info("mqtt publisher started", "topic", p.topic)

	for {
		select {
		case <-ctx.Done():
			log.Info("mqtt publisher stopped")
			return

		case snap := <-p.queue:
			if err := p.publish(snap); err != nil {
				log.Warn("mqtt publish failed", "topic", p.topic, "error", err)
				continue
			}
			p.sent.Add(1)
		}
	}
}

func (p *Publisher) publish(snap snapshot.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	token := p.sender.Publish(p.topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timed out after %s", publishTimeout)
	}
	return token.Error()
}

// Sent returns how many snapshots reached the broker.
func (p *Publisher) Sent() uint64 {
	return p.sent.Load()
}

// Dropped returns how many snapshots were discarded because the queue was
// full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}
