package pubsub

import (
	"context"
	"testing"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		project, kind, name, want string
	}{
		{"farm-prod", "topics", "fb-order-events", "projects/farm-prod/topics/fb-order-events"},
		{"farm-prod", "subscriptions", " analytics ", "projects/farm-prod/subscriptions/analytics"},
		{"farm-prod", "topics", "projects/other/topics/x", "projects/other/topics/x"},
		{"", "topics", "x", ""},
		{"farm-prod", "topics", "  ", ""},
	}
	for _, tc := range cases {
		if got := resourceName(tc.project, tc.kind, tc.name); got != tc.want {
			t.Fatalf("resourceName(%q,%q,%q) = %q, want %q", tc.project, tc.kind, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: "orders", AuthTopic: " "})
	if len(names) != 1 || names[0] != "orders" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestClientOptions(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{CredentialsJSON: `{}`, ApplicationCredentials: "/tmp/x"}); len(opts) != 1 {
		t.Fatalf("expected one option, got %d", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Subscription("x") != nil {
		t.Fatal("expected nil subscriber")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := c.Publish(context.Background(), "t", nil, nil); err == nil {
		t.Fatal("expected error from nil client")
	}
	if _, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
}
