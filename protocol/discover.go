package protocol

import (
	"github.com/datazip-inc/tap-ilevel/types"
	"github.com/spf13/cobra"
)

// discoverCmd prints the catalog: every stream of the registry at one flat level
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "discover command",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog := types.GetWrappedCatalog(registry.Flatten(), registry.Parents())
		return printMessage(cmd.OutOrStdout(), types.Message{Type: types.CatalogMessage, Catalog: catalog})
	},
}
