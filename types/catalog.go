package types

import (
	"sort"
	"time"
)

// Message is a dto for one line of connector output
type Message struct {
	Type               MessageType    `json:"type"`
	Stream             string         `json:"stream,omitempty"`
	Record             map[string]any `json:"record,omitempty"`
	TimeExtracted      *time.Time     `json:"time_extracted,omitempty"`
	Schema             map[string]any `json:"schema,omitempty"`
	KeyProperties      []string       `json:"key_properties,omitempty"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
	Value              any            `json:"value,omitempty"`
	ConnectionStatus   *StatusRow     `json:"connectionStatus,omitempty"`
	Catalog            *Catalog       `json:"catalog,omitempty"`
	Spec               map[string]any `json:"spec,omitempty"`
}

// StatusRow is a dto for check results
type StatusRow struct {
	Status  ConnectionStatus `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
}

// CatalogEntry is one discovered stream
type CatalogEntry struct {
	FlatStream

	Stream      string `json:"stream"`
	TapStreamID string `json:"tap_stream_id"`
	Parent      string `json:"parent,omitempty"`
}

// Catalog lists the streams available for sync
type Catalog struct {
	Streams []CatalogEntry `json:"streams"`
}

// GetWrappedCatalog builds a catalog from the flattened registry, sorted by stream name
func GetWrappedCatalog(flat map[string]FlatStream, parents map[string]string) *Catalog {
	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	sort.Strings(names)

	catalog := &Catalog{Streams: make([]CatalogEntry, 0, len(names))}
	for _, name := range names {
		catalog.Streams = append(catalog.Streams, CatalogEntry{
			Stream:      name,
			TapStreamID: name,
			FlatStream:  flat[name],
			Parent:      parents[name],
		})
	}

	return catalog
}
