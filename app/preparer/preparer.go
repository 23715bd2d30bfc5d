package preparer

import (
	"context"
	"fmt"

	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

type EmailPreparer interface {
	Prepare(ctx context.Context, msg entity.VerificationMessage) (*entity.VerificationEmail, error)
}

type Step interface {
	Prepare(ctx context.Context, msg entity.VerificationMessage, email *entity.VerificationEmail) error
}

type Chain struct {
	steps []Step
}

// NewChain builds an email preparer chain from steps.
func NewChain(steps ...Step) *Chain {
	return &Chain{steps: steps}
}

// Prepare runs all preparer steps and returns the rendered email.
func (c *Chain) Prepare(ctx context.Context, msg entity.VerificationMessage) (*entity.VerificationEmail, error) {
	email := &entity.VerificationEmail{To: msg.Email}

	for _, step := range c.steps {
		if err := step.Prepare(ctx, msg, email); err != nil {
			return nil, err
		}
	}

	if email.Template == "" {
		return nil, fmt.Errorf("prepared email has no template")
	}

	return email, nil
}
