package streams

import "github.com/datazip-inc/tap-ilevel/types"

// definitions is the stream table of the iLEVEL API; children (when present)
// are nested under the stream whose identifiers parameterize their paths
var definitions = []*types.StreamDefinition{
	{
		Name:              "assets",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "assets",
		BookmarkType:      types.DatetimeBookmark,
		ReplicationKeys:   []string{"last_modified_date"},
	},
	{
		Name:              "data_items",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "data_items",
	},
	{
		Name:              "funds",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "funds",
		PayloadRef:        "NamedEntity",
		BookmarkType:      types.DatetimeBookmark,
		ReplicationKeys:   []string{"last_modified_date"},
	},
	{
		Name:              "investment_transactions",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		ReplicationKeys:   []string{"last_modified"},
		DataKey:           "investment_transactions",
	},
	{
		Name:              "investments",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		ReplicationKeys:   []string{"last_modified_date"},
		DataKey:           "investments",
		BookmarkType:      types.DatetimeBookmark,
	},
	{
		Name:              "scenarios",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "scenarios",
	},
	{
		Name:              "securities",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		ReplicationKeys:   []string{"last_modified_date"},
		DataKey:           "securities",
	},
	{
		Name:              "asset_periodic_data",
		KeyProperties:     []string{"currency_code", "data_item_id", "entity_path", "standardized_data_id", "scenario_id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "asset_periodic_data",
		BookmarkType:      types.DatetimeBookmark,
	},
	{
		Name:              "fund_periodic_data",
		KeyProperties:     []string{"currency_code", "data_item_id", "entity_path", "standardized_data_id", "scenario_id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "fund_periodic_data",
		BookmarkType:      types.DatetimeBookmark,
	},
	{
		Name:              "data_item_periodic_data",
		KeyProperties:     []string{},
		ReplicationMethod: types.Incremental,
		DataKey:           "data_item_periodic_data",
	},
	{
		Name:              "security_periodic_data",
		KeyProperties:     []string{},
		ReplicationMethod: types.Incremental,
		DataKey:           "data_item_periodic_data",
	},
	{
		Name:              "fund_to_asset_relations",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "fund_to_asset_relations",
	},
	{
		Name:              "fund_to_fund_relations",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "fund_to_fund_relation",
	},
	{
		Name:              "asset_to_asset_relations",
		KeyProperties:     []string{"id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "asset_to_asset_relations",
	},
	{
		Name:              "asset_periodic_data_standardized",
		KeyProperties:     []string{"standardized_data_id", "data_item_id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "asset_periodic_data_standardized",
	},
	{
		Name:              "fund_periodic_data_standardized",
		KeyProperties:     []string{"standardized_data_id", "data_item_id"},
		ReplicationMethod: types.Incremental,
		DataKey:           "fund_periodic_data_standardized",
	},
}

// Definitions returns a deep copy of the static table
func Definitions() []*types.StreamDefinition {
	return cloneAll(definitions)
}
