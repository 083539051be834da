package model

import "context"

// Detector abstracts the external object-detection model. Implementations
// send the encoded image to an inference service and return raw detections.
type Detector interface {
	// Detect runs inference on an encoded image (jpeg/png) and returns
	// detections with confidence at or above confThreshold.
	Detect(ctx context.Context, image []byte, confThreshold, iouThreshold float64) ([]RawDetection, error)

	// CheckHealth reports whether the inference service is reachable.
	CheckHealth(ctx context.Context) error
}
