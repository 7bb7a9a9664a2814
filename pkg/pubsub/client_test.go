package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/literature-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"proj", "orders", "projects/proj/topics/orders"},
		{"proj", " orders ", "projects/proj/topics/orders"},
		{"proj", "projects/other/topics/x", "projects/other/topics/x"},
		{"", "orders", ""},
		{"proj", "", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesDeduplicates(t *testing.T) {
	names := TopicNames(config.PubSubConfig{
		OrdersTopic:       "orders",
		NotificationTopic: "notify",
		InventoryTopic:    "notify",
	})
	if len(names) != 2 {
		t.Fatalf("expected 2 topics, got %v", names)
	}
}

func TestNilClientPublisher(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatalf("expected nil publisher from nil client")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error on nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}
