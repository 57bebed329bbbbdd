// Package events publishes engine lifecycle events over an in-process
// watermill pub/sub, one topic per event kind.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/ewe-studios/go-valtron/core"
)

const (
	topicPrefix = "valtron.events."

	// queueCapacity bounds events waiting for the pump goroutine. Engine
	// loops never block on a slow subscriber; overflow is dropped and
	// counted instead.
	queueCapacity = 256

	// subscriberBuffer is the per-subscriber channel size inside the
	// gochannel pub/sub.
	subscriberBuffer = 64
)

// Topic names the pub/sub topic carrying one event kind.
func Topic(kind core.EventKind) string {
	return topicPrefix + string(kind)
}

// Bus is a core.EventSink fanning engine events out to watermill
// subscribers. Publish enqueues and returns immediately; a pump goroutine
// serializes events to their kind topic.
type Bus struct {
	pubsub  *gochannel.GoChannel
	queue   chan core.Event
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewBus builds a running bus. A nil logger keeps watermill quiet.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	b := &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: subscriberBuffer,
		}, logger),
		queue: make(chan core.Event, queueCapacity),
		done:  make(chan struct{}),
	}
	b.wg.Add(1)
	go b.pump()
	return b
}

// Publish implements core.EventSink. It never blocks; events overflowing
// the internal queue are dropped and counted.
func (b *Bus) Publish(ev core.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.queue <- ev:
	default:
		b.dropped.Add(1)
	}
}

// Subscribe returns a channel of messages for one event kind. The channel
// closes when ctx ends or the bus closes. Consumers must Ack each message.
func (b *Bus) Subscribe(ctx context.Context, kind core.EventKind) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic(kind))
}

// Dropped reports how many events overflowed the internal queue.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close drains queued events, then shuts the pub/sub down. Further
// Publish calls are silently dropped.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.done)
	b.wg.Wait()
	return b.pubsub.Close()
}

func (b *Bus) pump() {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.queue:
			b.forward(ev)
		case <-b.done:
			for {
				select {
				case ev := <-b.queue:
					b.forward(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) forward(ev core.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.dropped.Add(1)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(ev.Kind))
	msg.Metadata.Set("engine", ev.Engine)
	if ev.Observation != "" {
		msg.Metadata.Set("observation", ev.Observation)
	}

	if err := b.pubsub.Publish(Topic(ev.Kind), msg); err != nil {
		b.dropped.Add(1)
	}
}

// DecodeEvent unmarshals a bus message back into an Event. Acking stays
// with the caller.
func DecodeEvent(msg *message.Message) (core.Event, error) {
	var ev core.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return core.Event{}, fmt.Errorf("events: decode %s: %w", msg.UUID, err)
	}
	return ev, nil
}
