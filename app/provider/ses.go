package provider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

type SESProvider struct {
	client *sesv2.Client
}

// NewSESProvider builds a provider that sends templated email via AWS SES.
func NewSESProvider(cfg aws.Config, optFns ...func(*sesv2.Options)) *SESProvider {
	return &SESProvider{
		client: sesv2.NewFromConfig(cfg, optFns...),
	}
}

// Send renders the stored SES template with the email's variables as template data.
func (p *SESProvider) Send(ctx context.Context, email *entity.VerificationEmail) error {
	if email.To == "" {
		return fmt.Errorf("recipient is required")
	}

	_, err := p.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(email.From),
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Content: &types.EmailContent{
			Template: &types.Template{
				TemplateName: aws.String(email.Template),
				TemplateData: aws.String(email.Variables),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send templated email: %w", err)
	}

	return nil
}
