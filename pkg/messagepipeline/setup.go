package messagepipeline

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// TopicSetup describes the topic the writer publishes to and the
// subscriptions that should read from it.
type TopicSetup struct {
	TopicID       string            `yaml:"topic_id"`
	Labels        map[string]string `yaml:"labels,omitempty"`
	Subscriptions []string          `yaml:"subscriptions,omitempty"`
}

// SetupTopic creates the topic and its subscriptions when they do not exist.
// Existing topics get their labels brought in sync. Subscriptions are created
// with message ordering so that partition keys are honoured on delivery.
func SetupTopic(ctx context.Context, client *pubsub.Client, setup TopicSetup, logger zerolog.Logger) error {
	if client == nil {
		return fmt.Errorf("pubsub client cannot be nil for topic setup")
	}
	if setup.TopicID == "" {
		setup.TopicID = DefaultTopicID
	}
	logger = logger.With().Str("subcomponent", "TopicSetup").Str("topic_id", setup.TopicID).Logger()

	topic := client.Topic(setup.TopicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existence of topic '%s': %w", setup.TopicID, err)
	}
	if exists {
		if len(setup.Labels) > 0 {
			logger.Info().Msg("Topic already exists, ensuring labels are in sync")
			if _, err := topic.Update(ctx, pubsub.TopicConfigToUpdate{Labels: setup.Labels}); err != nil {
				return fmt.Errorf("failed to update topic configuration for '%s': %w", setup.TopicID, err)
			}
		}
	} else {
		logger.Info().Msg("Creating topic...")
		topic, err = client.CreateTopicWithConfig(ctx, setup.TopicID, &pubsub.TopicConfig{Labels: setup.Labels})
		if err != nil {
			return fmt.Errorf("failed to create topic '%s': %w", setup.TopicID, err)
		}
	}

	for _, subID := range setup.Subscriptions {
		if subID == "" {
			logger.Warn().Msg("Skipping subscription with empty name")
			continue
		}
		sub := client.Subscription(subID)
		exists, err := sub.Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check existence of subscription '%s': %w", subID, err)
		}
		if exists {
			logger.Info().Str("subscription_id", subID).Msg("Subscription already exists")
			continue
		}
		_, err = client.CreateSubscription(ctx, subID, pubsub.SubscriptionConfig{
			Topic:                 topic,
			EnableMessageOrdering: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create subscription '%s' for topic '%s': %w", subID, setup.TopicID, err)
		}
		logger.Info().Str("subscription_id", subID).Msg("Subscription created successfully")
	}
	return nil
}
