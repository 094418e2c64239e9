package messagepipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultTopicID is the topic notifications are published to.
const DefaultTopicID = "javainuse"

// GooglePubsubWriterConfig holds configuration for the Google Pub/Sub writer.
type GooglePubsubWriterConfig struct {
	ProjectID string
	TopicID   string
	// PublishBatchSize and PublishDelay tune the client's own publish batching.
	// Zero values keep the client defaults.
	PublishBatchSize int
	PublishDelay     time.Duration
	// PublishTimeout bounds how long Write waits for the results of one chunk.
	PublishTimeout time.Duration
}

// GooglePubsubWriter publishes chunks of T to a Pub/Sub topic as JSON.
// It implements batch.ItemWriter[T].
type GooglePubsubWriter[T any] struct {
	topic          *pubsub.Topic
	keyFunc        KeyFunc[T]
	publishTimeout time.Duration
	logger         zerolog.Logger
}

// NewGooglePubsubWriter creates a new GooglePubsubWriter.
// It takes an existing *pubsub.Client instance, allowing for dependency injection,
// and checks that the topic exists before returning.
func NewGooglePubsubWriter[T any](
	ctx context.Context,
	client *pubsub.Client,
	cfg *GooglePubsubWriterConfig,
	keyFunc KeyFunc[T],
	logger zerolog.Logger,
) (*GooglePubsubWriter[T], error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client cannot be nil for writer")
	}
	if cfg.TopicID == "" {
		cfg.TopicID = DefaultTopicID
	}

	topic := client.Topic(cfg.TopicID)

	// Retry logic for topic existence check.
	maxRetries := 3
	retryDelay := 100 * time.Millisecond
	exists := false
	var existsErr error

	for i := 0; i < maxRetries; i++ {
		topicCtx, topicCancel := context.WithTimeout(ctx, 5*time.Second)
		exists, existsErr = topic.Exists(topicCtx)
		topicCancel()

		if existsErr == nil && exists {
			logger.Debug().Str("topic_id", cfg.TopicID).Int("attempt", i+1).Msg("Topic confirmed to exist.")
			break
		}

		if existsErr != nil {
			logger.Warn().Err(existsErr).Str("topic_id", cfg.TopicID).Int("attempt", i+1).
				Msg("NewGooglePubsubWriter: Failed to check existence of topic, retrying...")
		} else {
			logger.Warn().Str("topic_id", cfg.TopicID).Int("attempt", i+1).
				Msg("NewGooglePubsubWriter: Topic reported as not existing, retrying...")
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("checking topic %s: %w", cfg.TopicID, ctx.Err())
		case <-time.After(retryDelay):
		}
		retryDelay *= 2 // Exponential backoff
	}

	if existsErr != nil {
		return nil, fmt.Errorf("failed to check existence of topic %s after %d retries: %w", cfg.TopicID, maxRetries, existsErr)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist after %d retries", cfg.TopicID, maxRetries)
	}

	logger.Info().Str("topic_id", cfg.TopicID).Msg("GooglePubsubWriter initialized successfully.")
	return newGooglePubsubWriter(topic, cfg, keyFunc, logger), nil
}

// NewGooglePubsubWriterWithExistingTopic creates a new GooglePubsubWriter
// that publishes to an already created and validated *pubsub.Topic.
// This is useful for testing or scenarios where the topic lifecycle is managed externally.
func NewGooglePubsubWriterWithExistingTopic[T any](
	topic *pubsub.Topic,
	cfg *GooglePubsubWriterConfig,
	keyFunc KeyFunc[T],
	logger zerolog.Logger,
) (*GooglePubsubWriter[T], error) {
	if topic == nil {
		return nil, fmt.Errorf("pubsub topic cannot be nil for writer")
	}
	if cfg.TopicID != "" && cfg.TopicID != topic.ID() {
		logger.Warn().Str("config_topic_id", cfg.TopicID).Str("provided_topic_id", topic.ID()).
			Msg("Writer config TopicID does not match provided Pub/Sub Topic object ID. Using provided topic object's ID.")
	}
	cfg.TopicID = topic.ID()
	return newGooglePubsubWriter(topic, cfg, keyFunc, logger), nil
}

func newGooglePubsubWriter[T any](topic *pubsub.Topic, cfg *GooglePubsubWriterConfig, keyFunc KeyFunc[T], logger zerolog.Logger) *GooglePubsubWriter[T] {
	if cfg.PublishBatchSize > 0 {
		topic.PublishSettings.CountThreshold = cfg.PublishBatchSize
	}
	if cfg.PublishDelay > 0 {
		topic.PublishSettings.DelayThreshold = cfg.PublishDelay
	}
	if keyFunc != nil {
		topic.EnableMessageOrdering = true
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GooglePubsubWriter[T]{
		topic:          topic,
		keyFunc:        keyFunc,
		publishTimeout: timeout,
		logger:         logger.With().Str("component", "GooglePubsubWriter").Str("topic_id", cfg.TopicID).Logger(),
	}
}

// Write publishes every item of chunk and waits for all publish results.
// It returns nil only if every item was accepted by Pub/Sub. A marshalling
// failure rejects the chunk before anything is published.
func (w *GooglePubsubWriter[T]) Write(ctx context.Context, chunk []*T) error {
	if len(chunk) == 0 {
		return nil
	}

	messages := make([]*pubsub.Message, len(chunk))
	for i, item := range chunk {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item %d of chunk: %w", i, err)
		}
		msg := &pubsub.Message{Data: payload}
		if w.keyFunc != nil {
			msg.OrderingKey = w.keyFunc(item)
		}
		messages[i] = msg
	}

	publishCtx, publishCancel := context.WithTimeout(ctx, w.publishTimeout)
	defer publishCancel()

	w.logger.Debug().Int("count", len(messages)).Msg("Publishing chunk to Pub/Sub.")

	results := make([]*pubsub.PublishResult, len(messages))
	for i, msg := range messages {
		results[i] = w.topic.Publish(publishCtx, msg)
	}

	// Every result is awaited so that the chunk's outcome is fully known
	// before Write returns.
	var g errgroup.Group
	for i, res := range results {
		i, res := i, res
		g.Go(func() error {
			msgID, err := res.Get(publishCtx)
			if err != nil {
				w.logger.Error().Err(err).Int("index", i).Str("ordering_key", messages[i].OrderingKey).
					Msg("Failed to publish message.")
				return fmt.Errorf("publish of item %d failed: %w", i, err)
			}
			w.logger.Debug().Int("index", i).Str("pubsub_msg_id", msgID).Msg("Message published successfully.")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		w.resumeKeys(messages)
		return err
	}
	w.logger.Info().Int("chunk_size", len(messages)).Msg("Successfully published chunk.")
	return nil
}

// resumeKeys re-enables ordering keys paused by a failed publish.
func (w *GooglePubsubWriter[T]) resumeKeys(messages []*pubsub.Message) {
	seen := make(map[string]struct{})
	for _, msg := range messages {
		if msg.OrderingKey == "" {
			continue
		}
		if _, ok := seen[msg.OrderingKey]; ok {
			continue
		}
		seen[msg.OrderingKey] = struct{}{}
		w.topic.ResumePublish(msg.OrderingKey)
	}
}

// Stop flushes outstanding messages. It does not close the injected client.
func (w *GooglePubsubWriter[T]) Stop() {
	w.logger.Info().Msg("Stopping Pub/Sub writer...")
	w.topic.Stop()
	w.logger.Info().Msg("Pub/Sub writer stopped.")
}
