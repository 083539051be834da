package core

import (
	"errors"
	"fmt"

	"ecosort_service/internal/domain/model"
)

var (
	// ErrConfiguration marks a mismatch between the classifier's output
	// space and the loaded catalog. Not retryable; the catalog must be
	// fixed, never silently defaulted.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput marks a request the caller must correct before any
	// sorting decision can be produced.
	ErrInvalidInput = errors.New("invalid input")
)

// Decision strings paired with each signal.
const (
	DecisionNoDetection     = "NO_DETECTION"
	DecisionInorganicStream = "INORGANIC_STREAM"
	DecisionOrganicStream   = "ORGANIC_STREAM"
	DecisionSeparateStreams = "SEPARATE_STREAMS"
)

// Web colors per category, used by the frontend to paint bounding boxes.
const (
	colorInorganic = "#00FF00"
	colorOrganic   = "#FF6600"
)

// MapClass resolves a class id against the catalog. The result is identical
// across calls for the same id; an id the catalog does not know fails with
// ErrConfiguration.
func MapClass(catalog model.Catalog, classID int) (model.ClassEntry, error) {
	entry, ok := catalog[classID]
	if !ok {
		return model.ClassEntry{}, fmt.Errorf("%w: class id %d has no catalog entry", ErrConfiguration, classID)
	}
	return entry, nil
}

// ValidateThreshold rejects confidence thresholds outside [0, 1].
func ValidateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: confidence threshold %v outside [0, 1]", ErrInvalidInput, threshold)
	}
	return nil
}

// MapDetections filters raw detections to those with confidence at or above
// threshold (inclusive lower bound) and resolves each survivor through the
// catalog. Malformed bounding boxes anywhere in the input are rejected
// before any filtering happens.
func MapDetections(catalog model.Catalog, raw []model.RawDetection, threshold float64) ([]model.Detection, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	for _, r := range raw {
		if r.Box.X1 > r.Box.X2 || r.Box.Y1 > r.Box.Y2 {
			return nil, fmt.Errorf("%w: malformed bounding box (%d,%d)-(%d,%d)",
				ErrInvalidInput, r.Box.X1, r.Box.Y1, r.Box.X2, r.Box.Y2)
		}
	}

	detections := make([]model.Detection, 0, len(raw))
	for _, r := range raw {
		if r.Confidence < threshold {
			continue
		}
		entry, err := MapClass(catalog, r.ClassID)
		if err != nil {
			return nil, err
		}
		color := colorInorganic
		if entry.Category == model.CategoryOrganic {
			color = colorOrganic
		}
		detections = append(detections, model.Detection{
			ID:         len(detections),
			Box:        r.Box,
			ClassID:    r.ClassID,
			ClassName:  entry.Name,
			Confidence: r.Confidence,
			Category:   entry.Category,
			Color:      color,
		})
	}
	return detections, nil
}

// Decide reduces mapped detections into one sorting signal. Only category
// set membership matters: a single organic item among many inorganic ones
// still yields MIXED. The reducer is stateless; one call, one signal.
func Decide(detections []model.Detection) model.SortingDecision {
	var inorganic, organic int
	for _, d := range detections {
		switch d.Category {
		case model.CategoryInorganic:
			inorganic++
		case model.CategoryOrganic:
			organic++
		}
	}

	decision := model.SortingDecision{
		InorganicCount: inorganic,
		OrganicCount:   organic,
		TotalCount:     len(detections),
	}

	switch {
	case len(detections) == 0:
		decision.Decision = DecisionNoDetection
		decision.Signal = model.SignalIdle
	case inorganic > 0 && organic > 0:
		decision.Decision = DecisionSeparateStreams
		decision.Signal = model.SignalMixed
	case inorganic > 0:
		decision.Decision = DecisionInorganicStream
		decision.Signal = model.SignalGreen
	default:
		decision.Decision = DecisionOrganicStream
		decision.Signal = model.SignalRed
	}
	return decision
}
