package preparer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

type templateVariables struct {
	VerificationURL string `json:"verification_url"`
	Hash            string `json:"hash"`
}

type VariablesPreparer struct {
	verificationURL string
}

// NewVariablesPreparer creates a step that renders the template variables.
func NewVariablesPreparer(verificationURL string) *VariablesPreparer {
	return &VariablesPreparer{verificationURL: verificationURL}
}

// Prepare encodes the verification URL and token as a JSON object. Values are
// written raw: query separators in the URL must reach the template unescaped.
func (p *VariablesPreparer) Prepare(_ context.Context, msg entity.VerificationMessage, email *entity.VerificationEmail) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(templateVariables{
		VerificationURL: p.verificationURL,
		Hash:            msg.Hash,
	}); err != nil {
		return fmt.Errorf("encode template variables: %w", err)
	}

	email.Variables = strings.TrimSuffix(buf.String(), "\n")
	return nil
}
