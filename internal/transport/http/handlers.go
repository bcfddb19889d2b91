package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"evote/internal/bootstrap/logging"
	domain "evote/internal/domain/voting"
	"evote/internal/errs"
	usecase "evote/internal/usecase/voting"
)

const retryAfterSeconds = "5"

type choiceBody struct {
	Position     string `json:"position"`
	ContestantID string `json:"contestant_id"`
}

type castVoteBody struct {
	Choices      []choiceBody `json:"choices"`
	LivePhotoRef string       `json:"live_photo_ref"`
	Lat          *float64     `json:"lat"`
	Lng          *float64     `json:"lng"`
	DeviceID     string       `json:"device_id"`
}

type castVoteResponse struct {
	Code       domain.Code  `json:"code"`
	BallotIDs  []string     `json:"ballot_ids,omitempty"`
	Choices    []choiceBody `json:"choices,omitempty"`
	Confidence *float64     `json:"confidence,omitempty"`
	Message    string       `json:"message,omitempty"`
}

type errorResponse struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

func (h *Handler) castVote(w http.ResponseWriter, r *http.Request) {
	var body castVoteBody
	r.Body = http.MaxBytesReader(w, r.Body, maxVoteBodySize)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: domain.CodeInvalidRequest, Message: "malformed request body"})
		return
	}

	input := usecase.CastVoteInput{
		VoterID:       r.Header.Get(voterIDHeader),
		EventID:       chi.URLParam(r, "eventID"),
		LivePhotoRef:  body.LivePhotoRef,
		Lat:           body.Lat,
		Lng:           body.Lng,
		DeviceID:      body.DeviceID,
		NetworkOrigin: clientAddr(r),
	}
	for _, c := range body.Choices {
		input.Choices = append(input.Choices, domain.Choice{Position: c.Position, ContestantID: c.ContestantID})
	}

	result, err := h.svc.CastVote(r.Context(), input)
	resp := castVoteResponse{Code: result.Code, Confidence: result.Confidence, BallotIDs: result.BallotIDs}
	for _, c := range result.Choices {
		resp.Choices = append(resp.Choices, choiceBody{Position: c.Position, ContestantID: c.ContestantID})
	}
	if err != nil {
		if resp.Code == "" {
			resp.Code = domain.CodeOf(err)
		}
		resp.Message = publicMessage(resp.Code, err)
		status := statusForCode(resp.Code)
		if errs.IsTransient(err) {
			w.Header().Set("Retry-After", retryAfterSeconds)
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getResults(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetResults(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		logging.Warn(r.Context(), "health check failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.CodeOf(err)
	status := statusForCode(code)
	if status >= http.StatusInternalServerError {
		logging.Error(r.Context(), "request failed", slog.Any("err", errs.Loggable(err)))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: publicMessage(code, err)})
}

func statusForCode(code domain.Code) int {
	switch code {
	case domain.CodeOK:
		return http.StatusOK
	case domain.CodeInvalidRequest, domain.CodeInvalidEvent:
		return http.StatusBadRequest
	case domain.CodeEventNotFound, domain.CodeVoterNotFound:
		return http.StatusNotFound
	case domain.CodeEventNotOpen, domain.CodeAlreadyVoted, domain.CodeResultsNotPublic:
		return http.StatusConflict
	case domain.CodeIneligible, domain.CodeGeofenceViolation, domain.CodeFaceVerificationFailed:
		return http.StatusForbidden
	case domain.CodeNoRegisteredBiometric:
		return http.StatusUnprocessableEntity
	case domain.CodeVerificationError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps internal failure details out of responses.
func publicMessage(code domain.Code, err error) string {
	if code == domain.CodeVoteFailed {
		return "vote could not be recorded"
	}
	return err.Error()
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
