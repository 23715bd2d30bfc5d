package relay

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
	"golang.org/x/sync/errgroup"
)

// HandOffCapacity bounds how many messages may wait between the two stages.
const HandOffCapacity = 5

type Consumer interface {
	Run(ctx context.Context, out chan<- entity.VerificationMessage) error
}

type Dispatcher interface {
	Run(ctx context.Context, in <-chan entity.VerificationMessage) error
}

type Relay struct {
	consumer   Consumer
	dispatcher Dispatcher
	logger     logrus.FieldLogger
}

// New wires the stream consumer to the email dispatcher.
func New(consumer Consumer, dispatcher Dispatcher, logger logrus.FieldLogger) *Relay {
	return &Relay{consumer: consumer, dispatcher: dispatcher, logger: logger}
}

// Run starts both stages on a shared bounded channel and blocks until both
// have returned. The first stage error stops the consumer and is returned.
// The dispatcher is stopped only after the consumer has returned, so every
// message already handed off is still sent.
func (r *Relay) Run(ctx context.Context) error {
	handOff := make(chan entity.VerificationMessage, HandOffCapacity)

	g, gctx := errgroup.WithContext(ctx)
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(gctx))
	defer stopDispatch()

	g.Go(func() error {
		defer stopDispatch()
		return r.consumer.Run(gctx, handOff)
	})
	g.Go(func() error {
		return r.dispatcher.Run(dispatchCtx, handOff)
	})

	r.logger.WithField("capacity", HandOffCapacity).Info("Relay started")
	return g.Wait()
}
