// Package pubsub wraps the Pub/Sub v2 client used by the outbox publisher and
// the worker.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects and fails unless every configured topic and
// subscription already exists. Resources are provisioned out of band.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	ps, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub connect: %w", err)
	}
	c := &Client{client: ps, projectID: projectID, cfg: cfg}
	if err := c.verify(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":       projectID,
			"topics":        configured(cfg.RequestsTopic, cfg.InventoryTopic, cfg.NotificationTopic),
			"subscriptions": configured(cfg.InventorySubscription, cfg.NotificationSubscription),
		}), "pubsub ready")
	}
	return c, nil
}

// verify looks up every configured resource and reports all missing ones.
func (c *Client) verify(ctx context.Context) error {
	var errs error
	for _, name := range configured(c.cfg.RequestsTopic, c.cfg.InventoryTopic, c.cfg.NotificationTopic) {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
			Topic: c.resource(kindTopic, name),
		})
		errs = multierr.Append(errs, describeLookup(kindTopic, name, err))
	}
	for _, name := range configured(c.cfg.InventorySubscription, c.cfg.NotificationSubscription) {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
			Subscription: c.resource(kindSubscription, name),
		})
		errs = multierr.Append(errs, describeLookup(kindSubscription, name, err))
	}
	return errs
}

func describeLookup(kind resourceKind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", strings.TrimSuffix(string(kind), "s"), name)
	default:
		return fmt.Errorf("lookup %s %q: %w", strings.TrimSuffix(string(kind), "s"), name, err)
	}
}

func configured(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// resource expands a short name to its full resource path. Full paths pass
// through unchanged.
func (c *Client) resource(kind resourceKind, name string) string {
	name = strings.TrimSpace(name)
	if c == nil || name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+string(kind)+"/") {
		return name
	}
	return "projects/" + c.projectID + "/" + string(kind) + "/" + name
}

func (c *Client) Subscription(name string) *pubsub.Subscriber {
	full := c.resource(kindSubscription, name)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Subscriber(full)
}

// InventorySubscription is the subscriber the worker drains for stock events.
func (c *Client) InventorySubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.InventorySubscription)
}

func (c *Client) Publisher(topic string) *pubsub.Publisher {
	full := c.resource(kindTopic, topic)
	if full == "" || c.client == nil {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
