package dto

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

const (
	FieldEmail            = "email"
	FieldVerificationHash = "verification_hash"
)

var (
	ErrMissingEmail    = errors.New("email field is missing")
	ErrMissingHash     = errors.New("verification_hash field is missing")
	ErrInvalidEncoding = errors.New("field is not a valid UTF-8 string")
)

type VerificationEntry struct {
	ID               string
	Email            string
	VerificationHash string
}

// FromStreamValues extracts the verification fields from a stream entry.
func FromStreamValues(id string, values map[string]interface{}) (VerificationEntry, error) {
	email, err := field(values, FieldEmail, ErrMissingEmail)
	if err != nil {
		return VerificationEntry{}, err
	}
	hash, err := field(values, FieldVerificationHash, ErrMissingHash)
	if err != nil {
		return VerificationEntry{}, err
	}

	return VerificationEntry{ID: id, Email: email, VerificationHash: hash}, nil
}

// Message converts the entry into the hand-off model.
func (e VerificationEntry) Message() entity.VerificationMessage {
	return entity.VerificationMessage{
		EntryID: e.ID,
		Email:   e.Email,
		Hash:    e.VerificationHash,
	}
}

func field(values map[string]interface{}, key string, missing error) (string, error) {
	raw, ok := values[key]
	if !ok || raw == nil {
		return "", missing
	}

	var value string
	switch v := raw.(type) {
	case string:
		value = v
	case []byte:
		value = string(v)
	default:
		return "", missing
	}

	if !utf8.ValidString(value) {
		return "", fmt.Errorf("%s: %w", key, ErrInvalidEncoding)
	}
	return value, nil
}
