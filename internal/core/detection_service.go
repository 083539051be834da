package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"ecosort_service/internal/domain/model"
	"ecosort_service/internal/domain/repository"
)

// DetectionService runs one image through the external classifier, maps the
// results against the catalog and reduces them to a sorting decision.
type DetectionService struct {
	detector model.Detector
	catalog  model.Catalog
	logs     *repository.LogStore
	recorder repository.DetectionRecorder // optional

	defaultConfidence float64
	iouThreshold      float64
}

func NewDetectionService(
	detector model.Detector,
	catalog model.Catalog,
	logs *repository.LogStore,
	recorder repository.DetectionRecorder,
	defaultConfidence float64,
	iouThreshold float64,
) *DetectionService {
	return &DetectionService{
		detector:          detector,
		catalog:           catalog,
		logs:              logs,
		recorder:          recorder,
		defaultConfidence: defaultConfidence,
		iouThreshold:      iouThreshold,
	}
}

// Catalog returns the immutable class catalog the service was built with.
func (s *DetectionService) Catalog() model.Catalog {
	return s.catalog
}

// DefaultConfidence returns the configured confidence threshold used when
// a request does not supply its own.
func (s *DetectionService) DefaultConfidence() float64 {
	return s.defaultConfidence
}

// PredictResult is the outcome of one inference call.
type PredictResult struct {
	Detections      []model.Detection
	SortingDecision model.SortingDecision
	InferenceTimeMS float64
}

// Predict classifies one encoded image. Invalid thresholds and empty
// images fail before the classifier is called; unmapped class ids fail
// after it. No signal is ever produced from invalid or unmapped input.
func (s *DetectionService) Predict(ctx context.Context, image []byte, confidence float64) (*PredictResult, error) {
	if err := ValidateThreshold(confidence); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: no image data provided", ErrInvalidInput)
	}

	start := time.Now()
	raw, err := s.detector.Detect(ctx, image, confidence, s.iouThreshold)
	if err != nil {
		return nil, fmt.Errorf("model prediction failed: %w", err)
	}
	inferenceMS := float64(time.Since(start).Microseconds()) / 1000

	detections, err := MapDetections(s.catalog, raw, confidence)
	if err != nil {
		return nil, err
	}
	decision := Decide(detections)

	s.logs.AddBatch(detections)

	if s.recorder != nil && len(detections) > 0 {
		if err := s.recorder.SaveDetections(ctx, s.logs.SessionID(), detections, decision); err != nil {
			log.Printf("Warning: failed to record detections: %v", err)
		}
	}

	return &PredictResult{
		Detections:      detections,
		SortingDecision: decision,
		InferenceTimeMS: inferenceMS,
	}, nil
}
