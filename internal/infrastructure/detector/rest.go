package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"ecosort_service/internal/domain/model"
)

// RESTDetector talks to the YOLO inference service over HTTP: the image is
// uploaded as a multipart file, detections come back as JSON.
type RESTDetector struct {
	baseURL string
	client  *http.Client
}

func NewRESTDetector(baseURL string) *RESTDetector {
	return &RESTDetector{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type predictResponse struct {
	Detections []model.RawDetection `json:"detections"`
}

func (d *RESTDetector) Detect(ctx context.Context, image []byte, confThreshold, iouThreshold float64) ([]model.RawDetection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.WriteField("confidence", strconv.FormatFloat(confThreshold, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write confidence field: %w", err)
	}
	if err := writer.WriteField("iou", strconv.FormatFloat(iouThreshold, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write iou field: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned status: %d", resp.StatusCode)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	return result.Detections, nil
}

func (d *RESTDetector) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
