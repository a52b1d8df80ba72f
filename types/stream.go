package types

import "fmt"

// StreamDefinition describes how one stream is replicated from the API; it is
// built once by the registry and read-only afterwards
type StreamDefinition struct {
	Name               string            `json:"name"`
	Path               string            `json:"path,omitempty"`
	KeyProperties      []string          `json:"key_properties"`
	ReplicationMethod  ReplicationMethod `json:"replication_method"`
	ReplicationKeys    []string          `json:"replication_keys,omitempty"`
	DataKey            string            `json:"data_key"`
	BookmarkType       BookmarkType      `json:"bookmark_type,omitempty"`
	BookmarkQueryField string            `json:"bookmark_query_field,omitempty"`
	Params             map[string]string `json:"params,omitempty"`
	PayloadRef         string            `json:"payload_ref,omitempty"`

	// Parent is a weak reference by name; ParentKey is the parent record field
	// whose value parameterizes the child path
	Parent    string `json:"parent,omitempty"`
	ParentKey string `json:"parent_key,omitempty"`

	Children []*StreamDefinition `json:"children,omitempty"`
}

func (s *StreamDefinition) ID() string {
	return s.Name
}

func (s *StreamDefinition) IsIncremental() bool {
	return s.ReplicationMethod == Incremental
}

func (s *StreamDefinition) IsChild() bool {
	return s.Parent != ""
}

// BookmarkKey is the replication key that advances the bookmark; empty when the stream has none
func (s *StreamDefinition) BookmarkKey() string {
	if !s.IsIncremental() || len(s.ReplicationKeys) == 0 {
		return ""
	}
	return s.ReplicationKeys[0]
}

// QueryField is the API filter field for the bookmark, BookmarkQueryField overrides the replication key
func (s *StreamDefinition) QueryField() string {
	if s.BookmarkQueryField != "" {
		return s.BookmarkQueryField
	}
	return s.BookmarkKey()
}

func (s *StreamDefinition) String() string {
	return fmt.Sprintf("%s[%s]", s.Name, s.ReplicationMethod)
}

// FlatStream is the subset of a definition a generic sync engine needs
type FlatStream struct {
	KeyProperties     []string          `json:"key_properties"`
	ReplicationMethod ReplicationMethod `json:"replication_method"`
	ReplicationKeys   []string          `json:"replication_keys"`
}

func (s *StreamDefinition) Flat() FlatStream {
	return FlatStream{
		KeyProperties:     s.KeyProperties,
		ReplicationMethod: s.ReplicationMethod,
		ReplicationKeys:   s.ReplicationKeys,
	}
}
