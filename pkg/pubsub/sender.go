package pubsub

import (
	"context"
	"fmt"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/registry"
)

// Sender publishes messages and blocks for the server ack. Publishers are
// created lazily and reused per topic.
type Sender struct {
	client     *Client
	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewSender(client *Client) *Sender {
	return &Sender{client: client, publishers: map[string]*pubsub.Publisher{}}
}

// Send returns the server message id. A topic the client cannot resolve is
// reported as non-retryable.
func (s *Sender) Send(ctx context.Context, topic string, msg *pubsub.Message) (string, error) {
	pub := s.publisher(topic)
	if pub == nil {
		return "", registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}
	return pub.Publish(ctx, msg).Get(ctx)
}

func (s *Sender) publisher(topic string) *pubsub.Publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	pub := s.client.Publisher(topic)
	if pub != nil {
		s.publishers[topic] = pub
	}
	return pub
}

// Stop flushes and stops every cached publisher.
func (s *Sender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, pub := range s.publishers {
		pub.Stop()
		delete(s.publishers, topic)
	}
}
