package preparer

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

type EnvelopePreparer struct {
	from     string
	subject  string
	template string
}

// NewEnvelopePreparer creates a step that sets sender, subject and template name.
func NewEnvelopePreparer(from, subject, template string) *EnvelopePreparer {
	return &EnvelopePreparer{from: from, subject: subject, template: template}
}

// Prepare copies the static envelope fields onto the email.
func (p *EnvelopePreparer) Prepare(_ context.Context, _ entity.VerificationMessage, email *entity.VerificationEmail) error {
	if strings.TrimSpace(p.from) == "" {
		return fmt.Errorf("sender address is required")
	}
	if strings.TrimSpace(p.template) == "" {
		return fmt.Errorf("template name is required")
	}
	if strings.ContainsAny(p.subject, "\r\n") {
		return fmt.Errorf("subject contains invalid characters")
	}

	email.From = p.from
	email.Subject = p.subject
	email.Template = p.template
	return nil
}
