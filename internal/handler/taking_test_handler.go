package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/middleware"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/response"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/service"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/validator"
)

// TakingTestHandler serves the candidate taking-test endpoints.
type TakingTestHandler struct {
	svc *service.TakingTestService
	log zerolog.Logger
}

// NewTakingTestHandler creates a new TakingTestHandler.
func NewTakingTestHandler(svc *service.TakingTestService, log zerolog.Logger) *TakingTestHandler {
	return &TakingTestHandler{
		svc: svc,
		log: log.With().Str("component", "taking_test_handler").Logger(),
	}
}

// sessionParams extracts the session id and the authenticated candidate, or
// writes the failure and reports false.
func sessionParams(c *gin.Context) (sessionID, candidateID int, ok bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, 0, false
	}
	id, err := strconv.Atoi(c.Param("session_id"))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, 0, false
	}
	return id, claims.UserID, true
}

// fail maps service errors onto envelope codes.
func (h *TakingTestHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotAssigned):
		response.Fail(c, http.StatusForbidden, response.ErrNotAssigned)
	case errors.Is(err, service.ErrSessionNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotStarted)
	case errors.Is(err, service.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrInvalidAnswer):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidAnswer, err.Error())
	default:
		h.log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Taking-test request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// GetSession godoc
// GET /taking-test/:session_id
func (h *TakingTestHandler) GetSession(c *gin.Context) {
	sessionID, candidateID, ok := sessionParams(c)
	if !ok {
		return
	}
	info, err := h.svc.GetSession(c.Request.Context(), sessionID, candidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

// GetTest godoc
// GET /taking-test/:session_id/test
func (h *TakingTestHandler) GetTest(c *gin.Context) {
	sessionID, candidateID, ok := sessionParams(c)
	if !ok {
		return
	}
	info, err := h.svc.GetTest(c.Request.Context(), sessionID, candidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

// GetQuestions godoc
// GET /taking-test/:session_id/questions
func (h *TakingTestHandler) GetQuestions(c *gin.Context) {
	sessionID, candidateID, ok := sessionParams(c)
	if !ok {
		return
	}
	questions, err := h.svc.GetQuestions(c.Request.Context(), sessionID, candidateID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, questions)
}

// SaveProgress godoc
// POST /taking-test/:session_id/save-progress
// Body is the full list of answered questions.
func (h *TakingTestHandler) SaveProgress(c *gin.Context) {
	sessionID, candidateID, ok := sessionParams(c)
	if !ok {
		return
	}
	var entries []model.AnswerEntry
	if fields := validator.Bind(c, &entries); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := h.svc.SaveProgress(c.Request.Context(), sessionID, candidateID, entries); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": len(entries)})
}

// Submit godoc
// POST /taking-test/:session_id/submit
func (h *TakingTestHandler) Submit(c *gin.Context) {
	sessionID, candidateID, ok := sessionParams(c)
	if !ok {
		return
	}
	if err := h.svc.Submit(c.Request.Context(), sessionID, candidateID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.SessionStatusSubmitted})
}
