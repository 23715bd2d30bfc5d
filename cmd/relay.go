package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-verification-mailer/app/controller"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/preparer"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/provider"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/queue"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/relay"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/service"
	"github.com/vibast-solutions/ms-go-verification-mailer/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay [consumer_name]",
	Short: "Start the verification email relay",
	Long:  "Consume verification requests from the Redis stream and send them through the email provider. The consumer name defaults to <group>-<pid>.",
	Args:  cobra.MaximumNArgs(1),
	Run:   runRelay,
}

// init registers the relay command.
func init() {
	rootCmd.AddCommand(relayCmd)
}

// runRelay wires dependencies and runs both relay stages until a fatal error or signal.
func runRelay(_ *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)
	logger.WithFields(cfg.Fields()).Info("Starting with configuration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()
	logger.Info("Connected to Redis")

	sender, err := buildEmailSender(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to build email provider: %v", err)
	}

	consumerName := queue.DefaultConsumerName(cfg.StreamGroup)
	if len(args) == 1 {
		consumerName = args[0]
	}

	consumer := queue.NewVerificationConsumer(rdb, cfg.StreamKey, cfg.StreamGroup, consumerName, logger)
	emailPreparer := preparer.NewChain(
		preparer.NewEnvelopePreparer(cfg.MailgunFrom, cfg.MailgunSubject, cfg.MailgunTemplate),
		preparer.NewVariablesPreparer(cfg.VerificationURL),
	)
	dispatcher := service.NewEmailDispatcher(emailPreparer, sender, logger)

	healthController := controller.NewHealthController(func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}, logger)
	e := setupHTTPServer(healthController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
		logger.Infof("Starting health server on %s", httpAddr)
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Health server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Received shutdown signal, stopping relay...")
		cancel()
	}()

	if err := relay.New(consumer, dispatcher, logger).Run(ctx); err != nil {
		logger.Fatalf("Relay error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Health server shutdown error: %v", err)
	}

	logger.Info("Relay stopped")
}

// setupHTTPServer configures the Echo server exposing the health route.
func setupHTTPServer(healthController *controller.HealthController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())

	e.GET("/health", healthController.Health)

	return e
}

func buildEmailSender(ctx context.Context, cfg *config.Config) (provider.EmailSender, error) {
	switch cfg.EmailProvider {
	case "", config.ProviderMailgun:
		return provider.NewMailgunProvider(&http.Client{}, cfg.MailgunAPIBase, cfg.MailgunDomain, cfg.MailgunAPIKey), nil
	case config.ProviderSES:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		return provider.NewSESProvider(awsCfg), nil
	case config.ProviderNoop:
		return provider.NewNoopProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported EMAIL_PROVIDER: %s", cfg.EmailProvider)
	}
}
