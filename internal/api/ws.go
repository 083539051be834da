package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"ecosort_service/internal/domain/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 20,
	WriteBufferSize: 1 << 20,
	// The REST layer already allows any origin; the stream follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamRequest struct {
	Frame      string   `json:"frame"`
	Confidence *float64 `json:"confidence"`
}

type streamResponse struct {
	Detections      []model.Detection     `json:"detections"`
	SortingDecision model.SortingDecision `json:"sorting_decision"`
	ProcessedImage  string                `json:"processed_image"`
	Statistics      model.Statistics      `json:"statistics"`
}

type streamError struct {
	Error string `json:"error"`
}

// Stream handles GET /ws/stream: the client pushes base64 camera frames and
// receives detections, the sorting decision, the annotated frame and the
// running session statistics for each one.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read failed: %v", err)
			}
			return
		}
		if req.Frame == "" {
			continue
		}

		confidence := h.service.DefaultConfidence()
		if req.Confidence != nil {
			confidence = *req.Confidence
		}

		result, _, err := h.processFrame(r, req.Frame, confidence)
		if err != nil {
			if writeErr := conn.WriteJSON(streamError{Error: err.Error()}); writeErr != nil {
				return
			}
			continue
		}

		resp := streamResponse{
			Detections:      result.Detections,
			SortingDecision: result.SortingDecision,
			ProcessedImage:  result.ProcessedImage,
			Statistics:      h.logs.Statistics(),
		}
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("websocket write failed: %v", err)
			return
		}
	}
}
