package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/dto"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

type VerificationProducer struct {
	client *redis.Client
	stream string
}

// NewVerificationProducer constructs a Redis stream producer.
func NewVerificationProducer(client *redis.Client, stream string) *VerificationProducer {
	return &VerificationProducer{client: client, stream: stream}
}

// Publish appends a verification request in the format the auth service writes.
func (p *VerificationProducer) Publish(ctx context.Context, msg entity.VerificationMessage) (string, error) {
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			dto.FieldEmail:            msg.Email,
			dto.FieldVerificationHash: msg.Hash,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd to %s: %w", p.stream, err)
	}
	return id, nil
}
