package provider

import (
	"context"

	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

// NoopProvider is a stubbed provider that pretends to send emails.
type NoopProvider struct{}

// NewNoopProvider constructs a no-op email provider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Send returns nil without sending.
func (p *NoopProvider) Send(_ context.Context, _ *entity.VerificationEmail) error {
	return nil
}
