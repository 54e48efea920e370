package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/classify"
	"github.com/Inovico-app/inovy-sub006/internal/detect"
	"github.com/Inovico-app/inovy-sub006/internal/events"
	"github.com/Inovico-app/inovy-sub006/internal/guardrails"
	"github.com/Inovico-app/inovy-sub006/internal/redact"
	"go.uber.org/zap"
)

var startTime = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "guardian",
		"uptime":  time.Since(startTime).String(),
		"events":  s.hub.GetStats(),
	})
}

type detectRequest struct {
	Text          string   `json:"text"`
	MinConfidence *float64 `json:"minConfidence,omitempty"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decodeBody(w, r, &req) {
		return
	}

	detections := s.detector.Detect(req.Text, s.minConfidence(req.MinConfidence))
	s.broadcastDetections(r, detections)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"detections": detections,
		"count":      len(detections),
	})
}

type redactRequest struct {
	Text          string         `json:"text"`
	Ranges        []redact.Range `json:"ranges,omitempty"`
	MinConfidence *float64       `json:"minConfidence,omitempty"`
	Placeholder   string         `json:"placeholder,omitempty"`
}

// handleRedact redacts the supplied ranges, or everything the detector
// finds when no ranges are given.
func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ranges := req.Ranges
	var detections []detect.Detection
	if len(ranges) == 0 {
		detections = s.detector.Detect(req.Text, s.minConfidence(req.MinConfidence))
		ranges = redact.Spans(detections)
		s.broadcastDetections(r, detections)
	}

	placeholder := req.Placeholder
	if placeholder == "" {
		placeholder = s.config.Detection.Placeholder
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"redactedText": redact.Apply(req.Text, ranges, placeholder),
		"detections":   detections,
	})
}

type alignRequest struct {
	Utterances    []detect.Utterance `json:"utterances"`
	MinConfidence *float64           `json:"minConfidence,omitempty"`
}

// handleAlign maps detections in per-utterance transcript text onto audio
// timestamps. The returned fullText is the concatenation the offsets are
// valid against, so the caller can redact it directly.
func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req alignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	aligned := s.aligner.Align(req.Utterances, s.minConfidence(req.MinConfidence))

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"detections": aligned,
		"fullText":   detect.JoinUtterances(req.Utterances),
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classify.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DataType == "" {
		http.Error(w, "dataType is required", http.StatusBadRequest)
		return
	}

	result := s.classifier.Classify(r.Context(), req)
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var msg guardrails.Message
	if !decodeBody(w, r, &msg) {
		return
	}
	if msg.Direction != guardrails.DirectionInput && msg.Direction != guardrails.DirectionOutput {
		http.Error(w, "direction must be input or output", http.StatusBadRequest)
		return
	}

	decision := s.guards.Evaluate(r.Context(), msg)

	for _, violation := range decision.Violations {
		s.hub.BroadcastEvent(events.Event{
			Type:      events.EventTypeViolation,
			Timestamp: time.Now(),
			RequestID: getRequestID(r.Context()),
			Data: events.ViolationEvent{
				Violation: violation,
				Allowed:   decision.Allowed,
			},
		})
	}

	s.writeJSON(w, http.StatusOK, decision)
}

func (s *Server) minConfidence(override *float64) float64 {
	if override != nil {
		return *override
	}
	return s.config.Detection.MinConfidence
}

func (s *Server) broadcastDetections(r *http.Request, detections []detect.Detection) {
	if len(detections) == 0 {
		return
	}
	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypeDetection,
		Timestamp: time.Now(),
		RequestID: getRequestID(r.Context()),
		Data: events.DetectionEvent{
			RequestID:      getRequestID(r.Context()),
			EntityTypes:    detect.Types(detections),
			TotalFindings:  len(detections),
			MeanConfidence: detect.MeanConfidence(detections),
		},
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}
