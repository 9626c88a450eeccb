package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/response"
	"github.com/stemsi/akademi-backend/internal/service"
	"github.com/stemsi/akademi-backend/internal/validator"
)

// ExamHandler handles the participant exam workflow.
type ExamHandler struct {
	guard *service.AccessGuard
	log   zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(guard *service.AccessGuard, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		guard: guard,
		log:   log.With().Str("component", "exam_handler").Logger(),
	}
}

// GetExam godoc
// GET /api/v1/exams/:id
// Accepts an exam id or a course id. Returns the exam with answer-free
// questions, or 409 ALREADY_COMPLETED with the prior result.
func (h *ExamHandler) GetExam(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	exam, err := h.guard.GetExamForParticipant(c.Request.Context(), userID, id)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, exam)
}

// StartAttempt godoc
// POST /api/v1/exams/:id/attempts
// Opens a new in-progress attempt for the caller.
func (h *ExamHandler) StartAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	examID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	attempt, err := h.guard.StartAttempt(c.Request.Context(), userID, examID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, attempt)
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:attempt_id/submit
// Grades and finalizes the attempt. Body: {"answers": {"<question id>": "<answer>"}}.
func (h *ExamHandler) SubmitAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.guard.SubmitAttempt(c.Request.Context(), userID, attemptID, req.Answers)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
