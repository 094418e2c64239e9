package messagepipeline_test

import (
	"context"
	"testing"

	"github.com/illmade-knight/go-batch/pkg/messagepipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTopic(t *testing.T) {
	ctx := context.Background()
	client := setupTestPubsub(t, "setup-project")

	setup := messagepipeline.TopicSetup{
		TopicID:       "notifications",
		Labels:        map[string]string{"team": "batch"},
		Subscriptions: []string{"mailer", ""},
	}

	t.Run("creates missing resources", func(t *testing.T) {
		require.NoError(t, messagepipeline.SetupTopic(ctx, client, setup, zerolog.Nop()))

		exists, err := client.Topic("notifications").Exists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)

		subCfg, err := client.Subscription("mailer").Config(ctx)
		require.NoError(t, err)
		assert.True(t, subCfg.EnableMessageOrdering)
		assert.Equal(t, "notifications", subCfg.Topic.ID())
	})

	t.Run("is idempotent", func(t *testing.T) {
		setup.Labels = map[string]string{"team": "mail"}
		require.NoError(t, messagepipeline.SetupTopic(ctx, client, setup, zerolog.Nop()))

		cfg, err := client.Topic("notifications").Config(ctx)
		require.NoError(t, err)
		assert.Equal(t, "mail", cfg.Labels["team"])
	})

	t.Run("defaults the topic", func(t *testing.T) {
		require.NoError(t, messagepipeline.SetupTopic(ctx, client, messagepipeline.TopicSetup{}, zerolog.Nop()))
		exists, err := client.Topic(messagepipeline.DefaultTopicID).Exists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("nil client", func(t *testing.T) {
		assert.Error(t, messagepipeline.SetupTopic(ctx, nil, setup, zerolog.Nop()))
	})
}
