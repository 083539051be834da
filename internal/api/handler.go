package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ecosort_service/internal/core"
	"ecosort_service/internal/domain/model"
	"ecosort_service/internal/domain/repository"
	"ecosort_service/internal/infrastructure/export"
	"ecosort_service/internal/infrastructure/imaging"
	"ecosort_service/internal/infrastructure/sysmon"
	"ecosort_service/internal/infrastructure/video"
)

const maxUploadBytes = 50 << 20

type Handler struct {
	service *core.DetectionService
	logs    *repository.LogStore
	monitor *sysmon.Monitor

	uploadDir   string
	snapshotDir string
	logsDir     string
	imageSize   int
}

func NewHandler(
	service *core.DetectionService,
	logs *repository.LogStore,
	monitor *sysmon.Monitor,
	uploadDir, snapshotDir, logsDir string,
	imageSize int,
) *Handler {
	return &Handler{
		service:     service,
		logs:        logs,
		monitor:     monitor,
		uploadDir:   uploadDir,
		snapshotDir: snapshotDir,
		logsDir:     logsDir,
		imageSize:   imageSize,
	}
}

// Routes wires all endpoints onto a ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /predict/image", h.PredictImage)
	mux.HandleFunc("POST /predict/video", h.PredictVideo)
	mux.HandleFunc("POST /predict/frame", h.PredictFrame)
	mux.HandleFunc("GET /ws/stream", h.Stream)

	mux.HandleFunc("GET /system/status", h.SystemStatus)
	mux.HandleFunc("GET /system/classes", h.Classes)

	mux.HandleFunc("GET /logs", h.Logs)
	mux.HandleFunc("GET /logs/statistics", h.Statistics)
	mux.HandleFunc("GET /logs/export/csv", h.ExportCSV)
	mux.HandleFunc("GET /logs/export/excel", h.ExportExcel)
	mux.HandleFunc("DELETE /logs/clear", h.ClearLogs)

	mux.HandleFunc("POST /snapshot", h.SaveSnapshot)
	mux.HandleFunc("GET /snapshots", h.ListSnapshots)
	mux.HandleFunc("GET /snapshots/{filename}", h.GetSnapshot)

	mux.HandleFunc("GET /{$}", h.Root)

	return mux
}

type predictResponse struct {
	Success         bool                  `json:"success"`
	Detections      []model.Detection    `json:"detections"`
	SortingDecision model.SortingDecision `json:"sorting_decision"`
	ProcessedImage  string                `json:"processed_image,omitempty"`
	InferenceTimeMS float64               `json:"inference_time_ms"`
}

// PredictImage handles POST /predict/image: multipart image upload with
// optional confidence and draw_boxes query parameters.
func (h *Handler) PredictImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !isAllowedImageType(contentType) {
		respondError(w, "Invalid file type. Use JPG, PNG, or JPEG.", http.StatusBadRequest)
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	img, err := imaging.Decode(imageData)
	if err != nil {
		respondError(w, "Could not decode image", http.StatusBadRequest)
		return
	}

	confidence, err := h.confidenceQuery(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	drawBoxes := r.URL.Query().Get("draw_boxes") != "false"

	result, err := h.service.Predict(r.Context(), imageData, confidence)
	if err != nil {
		respondError(w, fmt.Sprintf("Detection failed: %v", err), statusForError(err))
		return
	}

	resp := predictResponse{
		Success:         true,
		Detections:      result.Detections,
		SortingDecision: result.SortingDecision,
		InferenceTimeMS: result.InferenceTimeMS,
	}
	if drawBoxes {
		resp.ProcessedImage, err = annotatedDataURL(img, result.Detections)
		if err != nil {
			respondError(w, fmt.Sprintf("Failed to render image: %v", err), http.StatusInternalServerError)
			return
		}
	}
	respondJSON(w, resp, http.StatusOK)
}

type frameResult struct {
	FrameNumber     int                   `json:"frame_number"`
	Detections      []model.Detection     `json:"detections"`
	SortingDecision model.SortingDecision `json:"sorting_decision"`
}

// PredictVideo handles POST /predict/video: the file is stored to a temp
// path, decoded frame by frame through ffmpeg and every frame_skip-th
// frame is classified.
func (h *Handler) PredictVideo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !isAllowedVideoType(contentType) {
		respondError(w, "Invalid file type. Use MP4 or AVI.", http.StatusBadRequest)
		return
	}

	confidence, err := h.confidenceQuery(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	frameSkip := 5
	if v := r.URL.Query().Get("frame_skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, "frame_skip must be a positive integer", http.StatusBadRequest)
			return
		}
		frameSkip = n
	}

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		respondError(w, "Failed to create upload directory", http.StatusInternalServerError)
		return
	}
	videoPath := filepath.Join(h.uploadDir, fmt.Sprintf("temp_%s.mp4", uuid.NewString()))
	dst, err := os.Create(videoPath)
	if err != nil {
		respondError(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(videoPath)
		respondError(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	dst.Close()
	defer os.Remove(videoPath)

	info, err := video.Probe(r.Context(), videoPath)
	if err != nil {
		respondError(w, fmt.Sprintf("Could not read video: %v", err), http.StatusBadRequest)
		return
	}

	var results []frameResult
	err = video.ExtractFrames(r.Context(), videoPath, frameSkip, func(frameIndex int, frame image.Image) error {
		encoded, err := imaging.EncodeJPEG(frame)
		if err != nil {
			return err
		}
		result, err := h.service.Predict(r.Context(), encoded, confidence)
		if err != nil {
			return err
		}
		results = append(results, frameResult{
			FrameNumber:     frameIndex,
			Detections:      result.Detections,
			SortingDecision: result.SortingDecision,
		})
		return nil
	})
	if err != nil {
		respondError(w, fmt.Sprintf("Video processing failed: %v", err), statusForError(err))
		return
	}

	respondJSON(w, map[string]interface{}{
		"success":                true,
		"video_info":             info,
		"total_frames_processed": len(results),
		"frame_results":          results,
	}, http.StatusOK)
}

type frameRequest struct {
	Frame      string   `json:"frame"`
	Confidence *float64 `json:"confidence"`
}

// PredictFrame handles POST /predict/frame: a single base64 frame from the
// camera polling path.
func (h *Handler) PredictFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Frame == "" {
		respondError(w, "Frame data is required", http.StatusBadRequest)
		return
	}

	confidence := h.service.DefaultConfidence()
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	resp, status, err := h.processFrame(r, req.Frame, confidence)
	if err != nil {
		respondError(w, err.Error(), status)
		return
	}
	respondJSON(w, resp, http.StatusOK)
}

// processFrame is the shared path for /predict/frame, /ws/stream and
// snapshots: decode the base64 frame, classify and annotate.
func (h *Handler) processFrame(r *http.Request, frameData string, confidence float64) (*predictResponse, int, error) {
	imageData, err := imaging.DecodeDataURL(frameData)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("Could not decode frame")
	}
	decoded, err := imaging.Decode(imageData)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("Could not decode frame")
	}

	// Camera frames arrive at whatever size the browser captures. Normalize
	// to the model input square so detection coordinates match the frame we
	// annotate and send back.
	img := imaging.Letterbox(decoded, h.imageSize)
	normalized, err := imaging.EncodeJPEG(img)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("Failed to encode frame: %v", err)
	}

	result, err := h.service.Predict(r.Context(), normalized, confidence)
	if err != nil {
		return nil, statusForError(err), fmt.Errorf("Detection failed: %v", err)
	}

	processed, err := annotatedDataURL(img, result.Detections)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("Failed to render frame: %v", err)
	}

	return &predictResponse{
		Success:         true,
		Detections:      result.Detections,
		SortingDecision: result.SortingDecision,
		ProcessedImage:  processed,
		InferenceTimeMS: result.InferenceTimeMS,
	}, http.StatusOK, nil
}

// SystemStatus handles GET /system/status.
func (h *Handler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.monitor.Status(), http.StatusOK)
}

// Classes handles GET /system/classes.
func (h *Handler) Classes(w http.ResponseWriter, r *http.Request) {
	catalog := h.service.Catalog()

	ids := make([]int, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	classes := make([]string, 0, len(ids))
	var organic, inorganic []string
	for _, id := range ids {
		entry := catalog[id]
		classes = append(classes, entry.Name)
		if entry.Category == model.CategoryOrganic {
			organic = append(organic, entry.Name)
		} else {
			inorganic = append(inorganic, entry.Name)
		}
	}

	respondJSON(w, map[string]interface{}{
		"classes":   classes,
		"organic":   organic,
		"inorganic": inorganic,
	}, http.StatusOK)
}

// Logs handles GET /logs with limit, class_filter and category_filter
// query parameters.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	filter := repository.LogFilter{Limit: 100}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("class_filter"); v != "" {
		filter.Classes = strings.Split(v, ",")
	}
	if v := r.URL.Query().Get("category_filter"); v != "" {
		filter.Category = model.Category(v)
	}

	respondJSON(w, map[string]interface{}{
		"logs":        h.logs.Entries(filter),
		"total_count": h.logs.Total(),
	}, http.StatusOK)
}

// Statistics handles GET /logs/statistics.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logs.Statistics(), http.StatusOK)
}

// ExportCSV handles GET /logs/export/csv.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	path, err := export.ExportCSV(h.logsDir, h.logs.SessionID(), h.logs.All())
	if err != nil {
		respondError(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}
	serveDownload(w, r, path, "text/csv")
}

// ExportExcel handles GET /logs/export/excel.
func (h *Handler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	path, err := export.ExportExcel(h.logsDir, h.logs.SessionID(), h.logs.All(), h.logs.Statistics())
	if err != nil {
		respondError(w, fmt.Sprintf("Export failed: %v", err), http.StatusInternalServerError)
		return
	}
	serveDownload(w, r, path, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// ClearLogs handles DELETE /logs/clear.
func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	newSession := h.logs.Clear()
	respondJSON(w, map[string]interface{}{
		"success":        true,
		"message":        "Logs cleared",
		"new_session_id": newSession,
	}, http.StatusOK)
}

type snapshotRequest struct {
	Frame             string `json:"frame"`
	IncludeDetections *bool  `json:"include_detections"`
}

// SaveSnapshot handles POST /snapshot.
func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Frame == "" {
		respondError(w, "Frame data is required", http.StatusBadRequest)
		return
	}
	includeDetections := req.IncludeDetections == nil || *req.IncludeDetections

	imageData, err := imaging.DecodeDataURL(req.Frame)
	if err != nil {
		respondError(w, "Could not decode image", http.StatusBadRequest)
		return
	}
	decoded, err := imaging.Decode(imageData)
	if err != nil {
		respondError(w, "Could not decode image", http.StatusBadRequest)
		return
	}

	// Same normalization as the stream path, so boxes land on the frame
	// that gets written to disk.
	img := imaging.Letterbox(decoded, h.imageSize)

	var out image.Image = img
	if includeDetections {
		normalized, err := imaging.EncodeJPEG(img)
		if err != nil {
			respondError(w, fmt.Sprintf("Failed to encode snapshot: %v", err), http.StatusInternalServerError)
			return
		}
		result, err := h.service.Predict(r.Context(), normalized, h.service.DefaultConfidence())
		if err != nil {
			respondError(w, fmt.Sprintf("Detection failed: %v", err), statusForError(err))
			return
		}
		out = imaging.Annotate(img, result.Detections)
	}

	if err := os.MkdirAll(h.snapshotDir, 0755); err != nil {
		respondError(w, "Failed to create snapshot directory", http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("snapshot_%s.jpg", time.Now().Format("20060102_150405"))
	path := filepath.Join(h.snapshotDir, filename)

	encoded, err := imaging.EncodeJPEG(out)
	if err != nil {
		respondError(w, fmt.Sprintf("Failed to encode snapshot: %v", err), http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		respondError(w, fmt.Sprintf("Failed to save snapshot: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"success":  true,
		"filename": filename,
		"path":     path,
	}, http.StatusOK)
}

// ListSnapshots handles GET /snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	type snapshotInfo struct {
		Filename string  `json:"filename"`
		Created  string  `json:"created"`
		SizeKB   float64 `json:"size_kb"`
	}

	snapshots := []snapshotInfo{}
	entries, err := os.ReadDir(h.snapshotDir)
	if err != nil && !os.IsNotExist(err) {
		respondError(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jpg" {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, snapshotInfo{
			Filename: entry.Name(),
			Created:  fi.ModTime().Format(time.RFC3339),
			SizeKB:   float64(fi.Size()) / 1024,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created > snapshots[j].Created
	})

	respondJSON(w, map[string]interface{}{"snapshots": snapshots}, http.StatusOK)
}

// GetSnapshot handles GET /snapshots/{filename}.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	// filepath.Base keeps the lookup inside the snapshot directory.
	filename := filepath.Base(r.PathValue("filename"))
	path := filepath.Join(h.snapshotDir, filename)

	if _, err := os.Stat(path); err != nil {
		respondError(w, "Snapshot not found", http.StatusNotFound)
		return
	}
	serveDownload(w, r, path, "image/jpeg")
}

// Root handles GET /: service descriptor and health summary.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"name":    "EcoSort API",
		"version": "1.0.0",
		"status":  "running",
		"endpoints": map[string]string{
			"predict_image":    "POST /predict/image",
			"predict_video":    "POST /predict/video",
			"predict_frame":    "POST /predict/frame",
			"websocket_stream": "WS /ws/stream",
			"system_status":    "GET /system/status",
			"logs":             "GET /logs",
			"statistics":       "GET /logs/statistics",
			"export_csv":       "GET /logs/export/csv",
			"export_excel":     "GET /logs/export/excel",
		},
	}, http.StatusOK)
}

func (h *Handler) confidenceQuery(r *http.Request) (float64, error) {
	v := r.URL.Query().Get("confidence")
	if v == "" {
		return h.service.DefaultConfidence(), nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New("confidence must be a number")
	}
	if err := core.ValidateThreshold(f); err != nil {
		return 0, errors.New("confidence must be between 0.0 and 1.0")
	}
	return f, nil
}

func annotatedDataURL(img image.Image, detections []model.Detection) (string, error) {
	if len(detections) > 0 {
		return imaging.EncodeDataURL(imaging.Annotate(img, detections))
	}
	return imaging.EncodeDataURL(img)
}

func isAllowedImageType(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png":
		return true
	}
	return false
}

func isAllowedVideoType(contentType string) bool {
	switch contentType {
	case "video/mp4", "video/avi", "video/x-msvideo":
		return true
	}
	return false
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrConfiguration):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func serveDownload(w http.ResponseWriter, r *http.Request, path, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
