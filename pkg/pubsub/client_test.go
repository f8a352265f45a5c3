package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
)

func TestResourceExpandsShortNames(t *testing.T) {
	c := &Client{projectID: "supplydesk-dev"}

	cases := []struct {
		kind resourceKind
		in   string
		want string
	}{
		{kindTopic, "requests", "projects/supplydesk-dev/topics/requests"},
		{kindTopic, "projects/other/topics/x", "projects/other/topics/x"},
		{kindSubscription, " inv ", "projects/supplydesk-dev/subscriptions/inv"},
		{kindSubscription, "projects/other/topics/x", "projects/supplydesk-dev/subscriptions/projects/other/topics/x"},
		{kindSubscription, "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.resource(tc.kind, tc.in), tc.in)
	}
}

func TestConfiguredDropsBlanks(t *testing.T) {
	assert.Equal(t, []string{"requests", "notify"}, configured("requests", " ", "notify", ""))
	assert.Empty(t, configured())
}

func TestDescribeLookup(t *testing.T) {
	assert.NoError(t, describeLookup(kindTopic, "requests", nil))

	err := describeLookup(kindSubscription, "inventory-worker", status.Error(codes.NotFound, "gone"))
	assert.EqualError(t, err, `subscription "inventory-worker" does not exist`)

	cause := status.Error(codes.PermissionDenied, "no")
	err = describeLookup(kindTopic, "requests", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `lookup topic "requests"`)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "  "}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("requests"))
	assert.Nil(t, c.Subscription("inventory-worker"))
	assert.Nil(t, c.InventorySubscription())
	assert.True(t, errors.Is(c.Ping(context.Background()), errNotInitialized))
	assert.NoError(t, c.Close())
}
