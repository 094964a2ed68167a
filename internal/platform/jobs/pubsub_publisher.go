package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/printlane/api/internal/services"
)

// PubSubRenderPublisher publishes print render jobs to a Pub/Sub topic.
type PubSubRenderPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubRenderPublisher constructs a Pub/Sub backed render job publisher.
func NewPubSubRenderPublisher(topic *pubsub.Topic) (*PubSubRenderPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub render publisher: topic is required")
	}
	return &PubSubRenderPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

var _ services.RenderJobPublisher = (*PubSubRenderPublisher)(nil)

// PublishRenderJob enqueues a render job message on the configured topic.
func (p *PubSubRenderPublisher) PublishRenderJob(ctx context.Context, message services.RenderJobMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub render publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal render job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "jobId", message.JobID)
	setAttr(attrs, "batchId", message.BatchID)
	setAttr(attrs, "ownerId", message.OwnerID)
	setAttr(attrs, "layoutType", message.LayoutType)
	if message.TotalPages > 0 {
		attrs["totalPages"] = strconv.Itoa(message.TotalPages)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish render job: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
