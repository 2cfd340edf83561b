package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/response"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/service"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/validator"
)

// AdminSessionHandler lets proctors move a running session.
type AdminSessionHandler struct {
	svc *service.TakingTestService
	log zerolog.Logger
}

// NewAdminSessionHandler creates a new AdminSessionHandler.
func NewAdminSessionHandler(svc *service.TakingTestService, log zerolog.Logger) *AdminSessionHandler {
	return &AdminSessionHandler{
		svc: svc,
		log: log.With().Str("component", "admin_session_handler").Logger(),
	}
}

// Reschedule godoc
// PATCH /admin/sessions/:session_id/schedule
// Updates start time and duration and pushes the change to connected candidates.
func (h *AdminSessionHandler) Reschedule(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil || sessionID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RescheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	info, err := h.svc.Reschedule(c.Request.Context(), sessionID, req)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, info)
	case errors.Is(err, service.ErrInvalidSchedule):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"startTime": err.Error()})
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		h.log.Error().Err(err).Int("session_id", sessionID).Msg("Reschedule failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
