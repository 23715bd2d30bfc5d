package queue

import (
	"fmt"
	"os"
	"time"
)

const (
	// PollInterval is the idle pause between two stream reads.
	PollInterval = 100 * time.Millisecond

	// groupStartID makes a freshly created group see only entries added after it.
	groupStartID = "$"
	// newEntriesID asks the broker for entries never delivered to this group.
	newEntriesID = ">"
	// noBlock issues XREADGROUP without the BLOCK option.
	noBlock = time.Duration(-1)
)

// DefaultConsumerName derives a consumer identity unique to this process.
func DefaultConsumerName(group string) string {
	return fmt.Sprintf("%s-%d", group, os.Getpid())
}
