package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

// DefaultMailgunAPIURL is the EU region endpoint.
const DefaultMailgunAPIURL = "https://api.eu.mailgun.net/v3"

const (
	mailgunUser         = "api"
	mailgunVariablesKey = "h:X-Mailgun-Variables"
	maxErrorBodyBytes   = 4 << 10
)

type MailgunProvider struct {
	client  *http.Client
	baseURL string
	domain  string
	apiKey  string
}

// NewMailgunProvider builds a provider that submits templated messages to Mailgun.
func NewMailgunProvider(client *http.Client, baseURL, domain, apiKey string) *MailgunProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultMailgunAPIURL
	}
	return &MailgunProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		domain:  domain,
		apiKey:  apiKey,
	}
}

// Send posts one message to the domain's messages endpoint. Only HTTP 200 counts as accepted.
func (p *MailgunProvider) Send(ctx context.Context, email *entity.VerificationEmail) error {
	form := url.Values{}
	form.Set("from", email.From)
	form.Set("to", email.To)
	form.Set("subject", email.Subject)
	form.Set("template", email.Template)
	form.Set(mailgunVariablesKey, email.Variables)

	endpoint := fmt.Sprintf("%s/%s/messages", p.baseURL, url.PathEscape(p.domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build mailgun request: %w", err)
	}
	req.SetBasicAuth(mailgunUser, p.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
