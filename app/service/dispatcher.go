package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/preparer"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/provider"
)

type EmailDispatcher struct {
	preparer preparer.EmailPreparer
	sender   provider.EmailSender
	logger   logrus.FieldLogger
}

// NewEmailDispatcher builds the dispatcher with dependencies.
func NewEmailDispatcher(preparer preparer.EmailPreparer, sender provider.EmailSender, logger logrus.FieldLogger) *EmailDispatcher {
	return &EmailDispatcher{preparer: preparer, sender: sender, logger: logger}
}

// Run sends one email per received message until the context is cancelled,
// then sends whatever is still buffered in the channel before returning.
// A closed channel is logged and the dispatcher idles until cancellation.
func (d *EmailDispatcher) Run(ctx context.Context, in <-chan entity.VerificationMessage) error {
	// Sends outlive cancellation: the entries behind them are already acked.
	sendCtx := context.WithoutCancel(ctx)

	for {
		d.logger.Debug("Waiting for verification request")

		select {
		case <-ctx.Done():
			d.drain(sendCtx, in)
			d.logger.Info("Dispatcher shutting down")
			return nil
		case msg, ok := <-in:
			if !ok {
				d.logger.Error("Failed to receive verification request: channel closed")
				in = nil
				continue
			}
			d.Dispatch(sendCtx, msg)
		}
	}
}

// drain dispatches buffered messages without waiting for new ones.
func (d *EmailDispatcher) drain(ctx context.Context, in <-chan entity.VerificationMessage) {
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			d.Dispatch(ctx, msg)
		default:
			return
		}
	}
}

// Dispatch renders and sends a single message and logs the outcome. The
// message is never retried.
func (d *EmailDispatcher) Dispatch(ctx context.Context, msg entity.VerificationMessage) {
	logger := d.logger.WithFields(logrus.Fields{
		"entry_id":  msg.EntryID,
		"recipient": msg.Email,
	})

	email, err := d.preparer.Prepare(ctx, msg)
	if err != nil {
		logger.WithError(err).Error("Failed to prepare verification email")
		return
	}

	if err := d.sender.Send(ctx, email); err != nil {
		var statusErr *provider.StatusError
		if errors.As(err, &statusErr) {
			logger.WithError(err).WithField("status", statusErr.StatusCode).Error("Verification email rejected by provider")
			return
		}
		logger.WithError(err).Error("Failed to send verification email")
		return
	}

	logger.Info("Sent verification email")
}
