package types

import "fmt"

type ReplicationMethod string

const (
	FullTable   ReplicationMethod = "FULL_TABLE"
	Incremental ReplicationMethod = "INCREMENTAL"
)

func (r ReplicationMethod) Validate() error {
	switch r {
	case FullTable, Incremental:
		return nil
	default:
		return fmt.Errorf("invalid replication method[%s]; valid are %s, %s", r, FullTable, Incremental)
	}
}

type BookmarkType string

const (
	DatetimeBookmark BookmarkType = "datetime"
	IntegerBookmark  BookmarkType = "integer"
)

func (b BookmarkType) Validate() error {
	switch b {
	case DatetimeBookmark, IntegerBookmark:
		return nil
	default:
		return fmt.Errorf("invalid bookmark type[%s]; valid are %s, %s", b, DatetimeBookmark, IntegerBookmark)
	}
}
