package types

// FetchRequest asks the source for the pages of one stream. Child streams carry
// the parent definition and the parent identifier that parameterizes their path.
type FetchRequest struct {
	Stream   *StreamDefinition
	Parent   *StreamDefinition
	ParentID string
	// Start is the typed lower bound of the bookmark filter; nil fetches everything
	Start any
}

// Page is one batch of records. MaxBookmark is the running maximum across every
// record seen so far by the pager, nil while no record carried a bookmark.
type Page struct {
	Number      int
	Records     []Record
	MaxBookmark any
}
