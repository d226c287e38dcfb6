package models

// DefaultPlacementArea is used when an advertisement is saved without a placement.
const DefaultPlacementArea = "sidebar_main"

// Advertisement is an admin-managed banner shown in a named placement area.
type Advertisement struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	ImageURL        string `json:"image_url"`
	TargetURL       string `json:"target_url"`
	PlacementArea   string `json:"placement_area"`
	IsActive        bool   `json:"is_active"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	Clicks          int    `json:"clicks"`
	Views           int    `json:"views"`
	CreatedByID     uint   `json:"created_by_id,omitempty"`
	CreatorUsername string `json:"creator_username,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}
