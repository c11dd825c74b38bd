package repository

import (
	"context"

	"github.com/urban-indicators/internal/domain"
)

// StreamRepository reads and writes Redis streams
type StreamRepository interface {
	// ConsumeStream delivers messages for the consumer group until ctx is done
	ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error)

	// AckMessage acknowledges a processed message
	AckMessage(ctx context.Context, stream, group, messageID string) error

	// CreateConsumerGroup creates the group; an existing group is not an error
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// PublishToStream appends data encoded as JSON
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}
