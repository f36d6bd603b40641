package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler) error
	Close() error
}

// channelDispatcher fans events out over a watermill go-channel pub/sub.
// Handlers run on their own goroutine per subscription.
type channelDispatcher struct {
	pubSub *gochannel.GoChannel
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher backed by an in-process watermill pub/sub.
func NewDispatcher(logger *zap.Logger) Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &channelDispatcher{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewWatermillLogger(logger)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish hands the event to subscribers of its type. Events without
// subscribers are dropped.
func (d *channelDispatcher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(event.ID, body)
	return d.pubSub.Publish(string(event.Type), msg)
}

// Subscribe registers a handler for the given event type.
func (d *channelDispatcher) Subscribe(eventType EventType, handler EventHandler) error {
	messages, err := d.pubSub.Subscribe(d.ctx, string(eventType))
	if err != nil {
		return err
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for msg := range messages {
			d.handle(eventType, msg, handler)
		}
	}()
	return nil
}

func (d *channelDispatcher) handle(eventType EventType, msg *message.Message, handler EventHandler) {
	// Delivery is best effort; a failed handler is logged and the message acked.
	defer msg.Ack()

	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		d.logger.Error("drop malformed event", zap.String("topic", string(eventType)), zap.Error(err))
		return
	}
	if err := handler(d.ctx, event); err != nil {
		d.logger.Warn("event handler failed",
			zap.String("type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.Error(err),
		)
	}
}

// Close stops subscriptions and waits for in-flight handlers.
func (d *channelDispatcher) Close() error {
	d.cancel()
	err := d.pubSub.Close()
	d.wg.Wait()
	return err
}
