package models

// TripOrder selects the ordering of a trip listing
type TripOrder int

const (
	// OrderRecent sorts by creation time, newest first
	OrderRecent TripOrder = iota
	// OrderTrending sorts by cached trending score, then by creation time
	OrderTrending
)

// String returns the order name used in logs
func (o TripOrder) String() string {
	switch o {
	case OrderTrending:
		return "trending"
	default:
		return "recent"
	}
}

// TripQuery describes one filtered, ordered, paginated read of trips.
//
// IDs == nil means no id filter; a non-nil empty slice matches nothing.
type TripQuery struct {
	ExcludeOwnerID string
	OwnerID        string
	IDs            []string
	Order          TripOrder
	Limit          int
	Offset         int
}

// TripPage is one page of a trip listing
type TripPage struct {
	Trips      []*Trip `json:"trips"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	// Liked holds the ids of trips on this page the viewer has liked
	Liked map[string]bool `json:"-"`
}

// TotalPages returns ceil(count/pageSize), never negative
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}
