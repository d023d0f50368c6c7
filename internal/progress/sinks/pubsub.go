package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/startuplens/ycscout/internal/progress"
)

// PubSubSink publishes progress events to a Google Cloud Pub/Sub topic so
// downstream consumers can follow runs without polling the ops server.
type PubSubSink struct {
	client     *pubsub.Client
	topic      *pubsub.Topic
	ownsClient bool
	logger     *zap.Logger
}

// NewPubSubSink creates a Pub/Sub client with Application Default Credentials
// and verifies the topic exists before the first publish.
func NewPubSubSink(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubSink, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	sink := NewPubSubSinkWithTopic(client, topic, logger)
	sink.ownsClient = true
	return sink, nil
}

// NewPubSubSinkWithTopic wraps an existing client and topic. The caller keeps
// ownership of the client and must close it.
func NewPubSubSinkWithTopic(client *pubsub.Client, topic *pubsub.Topic, logger *zap.Logger) *PubSubSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubSink{client: client, topic: topic, logger: logger}
}

// Consume publishes every event in the batch, then waits for the server to
// acknowledge each one so failed publishes surface to the hub.
func (s *PubSubSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.topic == nil {
		return nil
	}
	results := make([]*pubsub.PublishResult, 0, len(batch))
	for _, evt := range batch {
		data, err := json.Marshal(newPubsubEvent(evt))
		if err != nil {
			return fmt.Errorf("encode progress event: %w", err)
		}
		results = append(results, s.topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"run_id": evt.RunID,
				"stage":  string(evt.Stage),
			},
		}))
	}

	var errs []error
	for _, res := range results {
		if _, err := res.Get(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish progress events: %w", errors.Join(errs...))
	}
	return nil
}

// Close flushes pending publishes and, when the sink created the client,
// closes the underlying connection.
func (s *PubSubSink) Close(context.Context) error {
	if s == nil {
		return nil
	}
	if s.topic != nil {
		s.topic.Stop()
	}
	if s.ownsClient && s.client != nil {
		if err := s.client.Close(); err != nil {
			return fmt.Errorf("close pubsub client: %w", err)
		}
	}
	return nil
}

// pubsubEvent is the JSON wire form of a progress event.
type pubsubEvent struct {
	RunID       string    `json:"run_id"`
	TS          time.Time `json:"ts"`
	Stage       string    `json:"stage"`
	Strategy    string    `json:"strategy,omitempty"`
	Company     string    `json:"company,omitempty"`
	Founder     string    `json:"founder,omitempty"`
	URL         string    `json:"url,omitempty"`
	NewRecords  int       `json:"new_records,omitempty"`
	Total       int       `json:"total,omitempty"`
	Founders    int       `json:"founders,omitempty"`
	UsedBrowser bool      `json:"used_browser,omitempty"`
	Found       bool      `json:"found,omitempty"`
	DurMS       int64     `json:"dur_ms,omitempty"`
	Note        string    `json:"note,omitempty"`
}

func newPubsubEvent(evt progress.Event) pubsubEvent {
	return pubsubEvent{
		RunID:       evt.RunID,
		TS:          evt.TS,
		Stage:       string(evt.Stage),
		Strategy:    evt.Strategy,
		Company:     evt.Company,
		Founder:     evt.Founder,
		URL:         evt.URL,
		NewRecords:  evt.NewRecords,
		Total:       evt.Total,
		Founders:    evt.Founders,
		UsedBrowser: evt.UsedBrowser,
		Found:       evt.Found,
		DurMS:       evt.Dur.Milliseconds(),
		Note:        evt.Note,
	}
}
