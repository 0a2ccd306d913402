package memory

import (
	"context"
	"sync"

	"github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/domain/event"
	portbus "github.com/NPSS00AKSHITH/Decentralized-AgentMesh-with-A2A/internal/port/eventbus"
)

// Bus is an in-process event bus for single-node deployments and tests.
// Handlers run synchronously on the publishing goroutine; observers must
// not block.
type Bus struct {
	mu   sync.RWMutex
	subs map[event.Channel]map[*busSubscription]struct{}
}

var _ portbus.EventBus = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{subs: make(map[event.Channel]map[*busSubscription]struct{})}
}

func (b *Bus) Publish(ctx context.Context, e event.Event) error {
	ch := event.ChannelFor(e.Type)

	b.mu.RLock()
	targets := make([]*busSubscription, 0, len(b.subs[ch]))
	for sub := range b.subs[ch] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		sub.handler(ctx, e)
	}
	return nil
}

func (b *Bus) Subscribe(_ context.Context, ch event.Channel, handler portbus.Handler) (portbus.Subscription, error) {
	sub := &busSubscription{bus: b, channel: ch, handler: handler}

	b.mu.Lock()
	if b.subs[ch] == nil {
		b.subs[ch] = make(map[*busSubscription]struct{})
	}
	b.subs[ch][sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

type busSubscription struct {
	bus     *Bus
	channel event.Channel
	handler portbus.Handler
}

func (s *busSubscription) Unsubscribe() {
	s.bus.mu.Lock()
	delete(s.bus.subs[s.channel], s)
	s.bus.mu.Unlock()
}
