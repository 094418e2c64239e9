package messagepipeline

import (
	"fmt"

	"github.com/illmade-knight/go-batch/pkg/types"
)

// ====================================================================================
// This file defines how published messages are keyed. The key is sent as the
// Pub/Sub ordering key, so messages sharing a key are delivered in publish order.
// ====================================================================================

// KeyFunc extracts the ordering key for an item. An empty key publishes the
// item without ordering.
type KeyFunc[T any] func(item *T) string

// DefaultFixedKey is the single key used by the fixed partition policy.
const DefaultFixedKey = "email-batch"

// PartitionPolicy names how messages are keyed.
type PartitionPolicy string

const (
	// PartitionFixed routes every message through one key, giving a single
	// ordered stream. This is the default.
	PartitionFixed PartitionPolicy = "fixed"
	// PartitionRecipient keys each message by its recipient so that ordering
	// is only kept per recipient.
	PartitionRecipient PartitionPolicy = "recipient"
)

// FixedKey returns a KeyFunc that always returns key.
func FixedKey[T any](key string) KeyFunc[T] {
	return func(*T) string { return key }
}

// RecipientKey keys a Message by its To field.
func RecipientKey(m *types.Message) string {
	return m.To
}

// MessageKeyFunc returns the KeyFunc for a partition policy. fixedKey is only
// used by PartitionFixed and defaults to DefaultFixedKey.
func MessageKeyFunc(policy PartitionPolicy, fixedKey string) (KeyFunc[types.Message], error) {
	switch policy {
	case "", PartitionFixed:
		if fixedKey == "" {
			fixedKey = DefaultFixedKey
		}
		return FixedKey[types.Message](fixedKey), nil
	case PartitionRecipient:
		return RecipientKey, nil
	default:
		return nil, fmt.Errorf("unknown partition policy %q", string(policy))
	}
}
