package models

// QueryResult is the wire shape of a query response. Records beyond the batch
// size are retrievable through the locator in NextRecordsURL.
type QueryResult struct {
	TotalSize      int       `json:"totalSize"`
	Done           bool      `json:"done"`
	Records        []SObject `json:"records"`
	NextRecordsURL string    `json:"nextRecordsUrl,omitempty"`
}

// QueryOptions carries per-request execution options
type QueryOptions struct {
	// BatchSize caps records per page; clamped to [200, 2000], default 2000.
	BatchSize int
}

// CompositeSubRequest is one operation inside a composite call
type CompositeSubRequest struct {
	Method      string  `json:"method"`
	Object      string  `json:"object"`
	ID          string  `json:"id,omitempty"`
	Body        SObject `json:"body,omitempty"`
	ReferenceID string  `json:"referenceId,omitempty"`
}

// CompositeRequest executes sub-requests sequentially. AllOrNone selects
// all-or-nothing semantics; otherwise each sub-request fails independently.
type CompositeRequest struct {
	AllOrNone   bool                  `json:"allOrNone"`
	SubRequests []CompositeSubRequest `json:"compositeRequest"`
}

// CompositeSubResult is the outcome of one sub-request
type CompositeSubResult struct {
	ReferenceID string      `json:"referenceId,omitempty"`
	StatusCode  int         `json:"httpStatusCode"`
	Body        interface{} `json:"body,omitempty"`
}
