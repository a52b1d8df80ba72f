package protocol

import (
	"fmt"
	"strings"

	"github.com/datazip-inc/tap-ilevel/constants"
	"github.com/datazip-inc/tap-ilevel/destination"
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/datazip-inc/tap-ilevel/utils"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// specCmd prints the JSON schema of the source config, or of a destination
// config with --destination-type
var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "spec command",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var (
			schema *jsonschema.Schema
			err    error
		)
		if writerType := viper.GetString(constants.DestinationType); writerType != "" {
			newFunc, found := destination.RegisteredWriters[constants.AdapterType(strings.ToUpper(writerType))]
			if !found {
				return fmt.Errorf("invalid destination type has been passed [%s]", writerType)
			}
			schema, err = newFunc().Spec()
		} else {
			schema, err = connector.Spec()
		}
		if err != nil {
			return fmt.Errorf("failed to reflect config: %s", err)
		}

		spec := map[string]any{}
		if err := utils.Unmarshal(schema, &spec); err != nil {
			return fmt.Errorf("failed to convert schema: %s", err)
		}
		return printMessage(cmd.OutOrStdout(), types.Message{Type: types.SpecMessage, Spec: spec})
	},
}
