package tapilevel

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/datazip-inc/tap-ilevel/destination/parquet" // registering local parquet writer
	_ "github.com/datazip-inc/tap-ilevel/destination/singer"  // registering singer writer
	"github.com/datazip-inc/tap-ilevel/drivers/abstract"
	"github.com/datazip-inc/tap-ilevel/protocol"
	"github.com/datazip-inc/tap-ilevel/streams"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/datazip-inc/tap-ilevel/utils/safego"
)

func RegisterDriver(driver abstract.DriverInterface) {
	defer safego.Recovery(true)

	// a signal cancels the run; bookmarks flushed so far stay valid
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute the root command
	err := protocol.CreateRootCommand(driver, streams.Default()).ExecuteContext(ctx)
	if err != nil {
		logger.Fatal(err)
	}

	os.Exit(0)
}
