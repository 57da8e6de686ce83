// outbox-drain replays every pending outbox entry against the remote API and
// exits. Useful after long offline stretches or when the service itself is
// not running.
//
// Usage:
//   DB_PATH=... REMOTE_API_BASE_URL=... go run ./cmd/outbox-drain
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Aman-CU/gstbilling/config"
	"github.com/Aman-CU/gstbilling/models"
	"github.com/Aman-CU/gstbilling/remotesync"
)

// alwaysOnline skips the probe: a manual drain should try the remote
// unconditionally and let per-entry errors speak for themselves.
type alwaysOnline struct{}

func (alwaysOnline) Online() bool    { return true }
func (alwaysOnline) OnOnline(func()) {}

func main() {
	ctx := context.Background()
	config.ConnectDatabase()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_PATH.")
		os.Exit(1)
	}
	models.MigrateTable()

	client := remotesync.NewClient()
	if !client.Enabled() {
		fmt.Fprintln(os.Stderr, "REMOTE_API_BASE_URL is not set; nothing to drain against.")
		os.Exit(1)
	}

	before, err := models.CountOutbox(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to count outbox: %v\n", err)
		os.Exit(1)
	}

	engine := remotesync.NewEngine(client, alwaysOnline{}, config.GetLogger())
	engine.Drain(ctx)

	after, err := models.CountOutbox(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to count outbox: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("outbox drain complete: %d pending before, %d remaining\n", before, after)
	if after > 0 {
		os.Exit(2)
	}
}
