package provider

import (
	"context"

	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

type EmailSender interface {
	Send(ctx context.Context, email *entity.VerificationEmail) error
}
