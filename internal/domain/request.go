package domain

import "time"

// RawServiceRequest is one row of the forestry service request export after
// type coercion. Community board and ZIP codes stay text so leading zeros and
// digit counts survive. Nil dates were empty in the source.
type RawServiceRequest struct {
	Line           int
	Status         string
	Category       string
	Priority       string
	CommunityBoard string
	ZIPCode        string
	StartDate      *time.Time
	EndDate        *time.Time
}

// CanopyRecord is the tree canopy proportion (0..1) measured for one
// community board. CanopyCover is nil when the export left it blank.
type CanopyRecord struct {
	CommunityBoardName string   `json:"community_board_name"`
	CanopyCover        *float64 `json:"canopy_cover"`
}

// Dataset holds both inputs fully loaded into memory.
type Dataset struct {
	Requests []RawServiceRequest
	Canopy   []CanopyRecord
}

// ServiceRequest is a cleaned, closed forestry request projected down to the
// fields the analysis uses.
type ServiceRequest struct {
	BoroughName        string `json:"borough_name"`
	CommunityBoardName string `json:"community_board_name"`
	StartMonth         string `json:"start_month"`
	EndMonth           string `json:"end_month"`
	Status             string `json:"status"`
	Priority           string `json:"priority"`
	Category           string `json:"category"`
}

// Year returns the four-digit year prefix of the start month.
func (r ServiceRequest) Year() string {
	if len(r.StartMonth) < 4 {
		return r.StartMonth
	}
	return r.StartMonth[:4]
}

// JoinedRecord is a service request with the canopy cover of its community
// board attached. CanopyCover is nil when the board has no canopy record.
type JoinedRecord struct {
	ServiceRequest
	CanopyCover *float64 `json:"canopy_cover"`
}
