package protocol

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/drivers/abstract"
	"github.com/datazip-inc/tap-ilevel/streams"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/datazip-inc/tap-ilevel/utils/logger"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath            string
	destinationConfigPath string
	destinationType       string
	statePath             string
	selectedStreams       []string
	reset                 bool
	batchSize             int
	encryptionKey         string
	destinationConfig     *types.WriterConfig

	commands  = []*cobra.Command{}
	driver    abstract.DriverInterface
	connector *abstract.AbstractDriver
	registry  *streams.Registry
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "tap-ilevel",
	Short: "replicates iLEVEL API streams into a destination",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		configFolder := utils.Ternary(viper.GetString(constants.ConfigPath) == "", os.TempDir(), filepath.Dir(viper.GetString(constants.ConfigPath))).(string)
		viper.Set(constants.ConfigFolder, configFolder)
		viper.SetDefault(constants.StatePath, filepath.Join(configFolder, "state.json"))

		// logger uses CONFIG_FOLDER
		logger.Init()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}

		if ok := utils.IsValidSubcommand(commands, args[0]); !ok {
			return fmt.Errorf("'%s' is an invalid command. Use 'tap-ilevel --help' to display usage guide", args[0])
		}

		return nil
	},
}

// CreateRootCommand wires the driver and the stream registry into the commands
func CreateRootCommand(source abstract.DriverInterface, streamRegistry *streams.Registry) *cobra.Command {
	RootCmd.AddCommand(commands...)
	driver = source
	connector = abstract.NewAbstractDriver(context.Background(), source)
	registry = streamRegistry

	return RootCmd
}

// printMessage writes one JSON line to the command output
func printMessage(out io.Writer, message types.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %s", message.Type, err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func init() {
	commands = append(commands, specCmd, checkCmd, discoverCmd, syncCmd)

	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "", "", "(Required) Config for connector")
	RootCmd.PersistentFlags().StringVarP(&destinationConfigPath, "destination", "", "", "(Optional) Destination config, defaults to singer messages on stdout")
	RootCmd.PersistentFlags().StringVarP(&destinationType, "destination-type", "", "", "Destination type for spec")
	RootCmd.PersistentFlags().StringVarP(&statePath, "state", "", "", "(Optional) State file path or s3://bucket/key, defaults to state.json next to the config")
	RootCmd.PersistentFlags().StringSliceVarP(&selectedStreams, "streams", "", nil, "(Optional) Streams to sync, all when empty; parents of a selected child are synced too")
	RootCmd.PersistentFlags().BoolVarP(&reset, "reset", "", false, "(Optional) Forget the bookmarks of the selected streams before syncing")
	RootCmd.PersistentFlags().IntVarP(&batchSize, "destination-buffer-size", "", 0, "(Optional) Batch size for destination")
	RootCmd.PersistentFlags().StringVarP(&encryptionKey, "encryption-key", "", "", "(Optional) Decryption key for encrypted config files. Provide the ARN of a KMS key or a passphrase")

	for key, flag := range map[string]string{
		constants.ConfigPath:      "config",
		constants.DestinationPath: "destination",
		constants.DestinationType: "destination-type",
		constants.StatePath:       "state",
		constants.Streams:         "streams",
		constants.Reset:           "reset",
		constants.BatchSize:       "destination-buffer-size",
		constants.EncryptionKey:   "encryption-key",
	} {
		if err := viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.AutomaticEnv()

	// Disable Cobra CLI's built-in usage and error handling
	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true
}
