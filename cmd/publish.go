package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/queue"
	"github.com/vibast-solutions/ms-go-verification-mailer/config"
)

var publishCmd = &cobra.Command{
	Use:   "publish [email] [verification_hash]",
	Short: "Append a verification request to the stream",
	Long:  "Append an entry shaped like the auth service's to the configured stream. Useful for local testing.",
	Args:  cobra.ExactArgs(2),
	Run:   runPublish,
}

// init registers the publish command.
func init() {
	rootCmd.AddCommand(publishCmd)
}

// runPublish writes one verification entry and prints its ID.
func runPublish(cmd *cobra.Command, args []string) {
	cfg := config.LoadBroker()
	logger := newLogger(cfg)

	ctx := context.Background()
	rdb, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	producer := queue.NewVerificationProducer(rdb, cfg.StreamKey)
	id, err := producer.Publish(ctx, entity.VerificationMessage{Email: args[0], Hash: args[1]})
	if err != nil {
		logger.Fatalf("Failed to publish verification request: %v", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
}
