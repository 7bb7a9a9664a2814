package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublishers caches one Pub/Sub publisher per topic.
func topicPublishers(client pubSubClient, ordered bool) publisherFactory {
	cache := make(map[string]publisher)
	return func(topic string) publisher {
		if pub, ok := cache[topic]; ok {
			return pub
		}
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		p.EnableMessageOrdering = ordered
		pub := &gcpPublisher{publisher: p}
		cache[topic] = pub
		return pub
	}
}

type gcpPublisher struct {
	publisher *gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &orderedResult{
		result:    p.publisher.Publish(ctx, msg),
		publisher: p.publisher,
		key:       msg.OrderingKey,
	}
}

// orderedResult resumes a paused ordering key after a failed publish so
// the retry on the next batch is not rejected outright.
type orderedResult struct {
	result    *gcppubsub.PublishResult
	publisher *gcppubsub.Publisher
	key       string
}

func (r *orderedResult) Get(ctx context.Context) (string, error) {
	if r.result == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.result.Get(ctx)
	if err != nil && r.key != "" {
		r.publisher.ResumePublish(r.key)
	}
	return id, err
}
