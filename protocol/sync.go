package protocol

import (
	"fmt"
	"strings"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/destination"
	"github.com/datazip-inc/tap-ilevel/state"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// syncCmd runs the streams against the stored bookmarks
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "sync command",
	Long:  `Sync fetches the selected streams from the bookmarks in the state, writes them to the destination and checkpoints after every page`,
	Example: `
// Base command, singer messages on stdout:
tap-ilevel sync --config path/to/config.json --state path/to/state.json

// Selected streams into a destination, forgetting their bookmarks first:
tap-ilevel sync --config path/to/config.json --destination path/to/destination.json --streams assets,funds --reset

// State kept on s3:
tap-ilevel sync --config path/to/config.json --state s3://bucket/tap-ilevel/state.json
`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		path := viper.GetString(constants.ConfigPath)
		if path == "" {
			return fmt.Errorf("--config not passed")
		}
		if err := unmarshalConfig(cmd.Context(), path, connector.GetConfigRef()); err != nil {
			return err
		}

		destinationConfig = &types.WriterConfig{Type: constants.Singer, WriterConfig: map[string]any{}}
		if path := viper.GetString(constants.DestinationPath); path != "" {
			if err := unmarshalConfig(cmd.Context(), path, destinationConfig); err != nil {
				return err
			}
		}
		if size := viper.GetInt(constants.BatchSize); size > 0 {
			destinationConfig.BatchSize = size
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		ctx := cmd.Context()
		if err := connector.Setup(ctx); err != nil {
			return err
		}

		selected, err := registry.Ordered(streamNames()...)
		if err != nil {
			return err
		}

		var storage *state.S3Config
		if provider, ok := driver.(StateStorageProvider); ok {
			storage = provider.StateStorage()
		}
		persister, err := state.NewPersister(viper.GetString(constants.StatePath), storage)
		if err != nil {
			return err
		}
		store := state.NewStore(persister, registry)
		if err := store.Load(ctx); err != nil {
			return err
		}
		if viper.GetBool(constants.Reset) {
			for _, stream := range selected {
				store.Reset(stream.Name)
			}
			logger.Infof("bookmarks reset for %d streams", len(selected))
		}

		pool, err := destination.NewWriterPool(ctx, destinationConfig)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := pool.Close(ctx); closeErr != nil {
				err = utils.Ternary(err == nil, closeErr, fmt.Errorf("%s: prev error: %w", closeErr, err)).(error)
			}
		}()

		if _, err := connector.Read(ctx, pool, store, selected); err != nil {
			return fmt.Errorf("error occurred while reading records: %w", err)
		}

		if snapshot, err := store.Snapshot(); err == nil && !snapshot.IsZero() {
			logger.LogState(snapshot)
		}
		return nil
	},
}

// streamNames reads --streams, which the environment may give as one comma separated value
func streamNames() []string {
	var names []string
	for _, value := range viper.GetStringSlice(constants.Streams) {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
