package audit

// TimelineFilters narrows the audit timeline. Empty fields match everything.
type TimelineFilters struct {
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Page       int
	PageSize   int
}

// PagingInfo is pagination metadata for a timeline page.
type PagingInfo struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasNext  bool  `json:"has_next"`
	PrevPage int   `json:"prev_page,omitempty"`
	NextPage int   `json:"next_page,omitempty"`
}

// Result is one page of the timeline.
type Result struct {
	Rows   []Record   `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
