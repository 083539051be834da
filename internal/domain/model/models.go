package model

import "time"

// Category is the coarse waste grouping that drives the physical sorting
// stream an item is routed to.
type Category string

const (
	CategoryOrganic   Category = "Organic"
	CategoryInorganic Category = "Inorganic"
)

// Signal is the aggregate sorting signal for one processed input.
type Signal string

const (
	SignalGreen Signal = "GREEN" // only inorganic items present
	SignalRed   Signal = "RED"   // only organic items present
	SignalMixed Signal = "MIXED" // at least one item of each category
	SignalIdle  Signal = "IDLE"  // nothing detected above threshold
)

// BoundingBox holds pixel coordinates of a detected object, with
// X1 <= X2 and Y1 <= Y2.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// RawDetection is what the external classifier emits before the class id
// has been resolved against the catalog.
type RawDetection struct {
	ClassID    int         `json:"class_id"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"bbox"`
}

// ClassEntry is one catalog record: the human-readable class name and the
// category the class belongs to.
type ClassEntry struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Catalog maps classifier class ids to their name/category pairs. It is
// built once at startup and treated as immutable afterwards.
type Catalog map[int]ClassEntry

// Detection is a classifier hit enriched with catalog data.
type Detection struct {
	ID         int         `json:"id"`
	Box        BoundingBox `json:"bbox"`
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	Category   Category    `json:"category"`
	Color      string      `json:"color"`
}

// SortingDecision is the reduction of all detections in one input into a
// single actuation signal.
type SortingDecision struct {
	Decision       string `json:"decision"`
	Signal         Signal `json:"signal"`
	InorganicCount int    `json:"inorganic_count"`
	OrganicCount   int    `json:"organic_count"`
	TotalCount     int    `json:"total_count"`
}

// LogEntry is one recorded detection in the session log.
type LogEntry struct {
	ID            int         `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	FormattedTime string      `json:"formatted_time"`
	ClassName     string      `json:"class_name"`
	Category      Category    `json:"category"`
	Confidence    float64     `json:"confidence"`
	Box           BoundingBox `json:"bbox"`
	SessionID     string      `json:"session_id"`
}

// Statistics summarizes the current log session.
type Statistics struct {
	TotalDetections     int            `json:"total_detections"`
	InorganicCount      int            `json:"inorganic_count"`
	OrganicCount        int            `json:"organic_count"`
	ClassCounts         map[string]int `json:"class_counts"`
	InorganicPercentage float64        `json:"inorganic_percentage"`
	OrganicPercentage   float64        `json:"organic_percentage"`
	SessionID           string         `json:"session_id"`
}
