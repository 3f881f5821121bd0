package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"askrelay/internal/config"
	"askrelay/internal/middleware"
	"askrelay/internal/models"
	"askrelay/internal/services"
)

// maxAskBodyBytes bounds POST /ask bodies. Histories past the trim window are
// dropped anyway, so anything this large is not a real conversation.
const maxAskBodyBytes = 1 << 20

type relayService interface {
	Relay(ctx context.Context, requestID string, req models.AskRequest) (*models.AskResponse, error)
}

type RelayHandler struct {
	relay     relayService
	errorMode string
}

// NewRelayHandler wires POST /ask. errorMode is config.ErrorModeEmbedded or
// config.ErrorModeStatus.
func NewRelayHandler(relay relayService, errorMode string) *RelayHandler {
	return &RelayHandler{relay: relay, errorMode: errorMode}
}

func (h *RelayHandler) Ask(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.writeRelayError(w, r, &services.RelayError{
				Kind:    services.InternalFault,
				Message: "internal error",
				Err:     fmt.Errorf("panic: %v", rec),
			})
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodyBytes)

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeRelayError(w, r, services.NewInvalidInputError("request body too large", err))
			return
		}
		h.writeRelayError(w, r, services.NewInvalidInputError("invalid request body", err))
		return
	}

	resp, err := h.relay.Relay(r.Context(), middleware.GetRequestID(r.Context()), req)
	if err != nil {
		h.writeRelayError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeRelayError always answers with a JSON body carrying "answer"; only the
// status code depends on the error mode.
func (h *RelayHandler) writeRelayError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	log.Printf("ask failed [%s] request_id=%s: %v", kind, middleware.GetRequestID(r.Context()), err)

	status := http.StatusOK
	if h.errorMode == config.ErrorModeStatus {
		status = statusForKind(kind)
	}
	writeJSON(w, status, models.AskResponse{Answer: "Error: " + services.PublicMessage(err)})
}

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.InvalidInput:
		return http.StatusBadRequest
	case services.UpstreamUnavailable:
		return http.StatusBadGateway
	case services.UpstreamEmptyResponse:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
