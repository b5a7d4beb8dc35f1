package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/campus-pulse/internal/auth"
	"github.com/ZanzyTHEbar/campus-pulse/internal/errors"
	"github.com/ZanzyTHEbar/campus-pulse/internal/insights"
	"github.com/ZanzyTHEbar/campus-pulse/internal/types"
)

type handlers struct {
	service *insights.Service
}

// caller returns the authenticated user id; auth.Middleware guarantees it on /api routes
func caller(c *gin.Context) (int64, bool) {
	id, ok := auth.CurrentUser(c)
	if !ok {
		errors.Respond(c, errors.NewUnauthenticatedError("User not identified"))
	}
	return id, ok
}

func pathUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		errors.Respond(c, errors.NewValidationError("Invalid user id", c.Param("user_id")))
		return 0, false
	}
	return id, true
}

// recommendStudents godoc
// @Summary Recommend collaborators by skill overlap
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} types.RecommendResponse
// @Router /api/recommend_students [get]
func (h *handlers) recommendStudents(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}

	resp, err := h.service.RecommendStudents(c.Request.Context(), uid)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// runFakeDetection godoc
// @Summary Flag likely fake accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} types.DetectionResponse
// @Router /api/admin/run_fake_detection [post]
func (h *handlers) runFakeDetection(c *gin.Context) {
	resp, err := h.service.RunFakeDetection(c.Request.Context())
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// trustScore godoc
// @Summary Recompute and return a user's trust score
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "User ID"
// @Success 200 {object} types.TrustScoreResponse
// @Router /api/trust_score/{user_id} [get]
func (h *handlers) trustScore(c *gin.Context) {
	uid, ok := pathUserID(c)
	if !ok {
		return
	}

	resp, err := h.service.GetTrustScore(c.Request.Context(), uid)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// skillGap godoc
// @Summary Compare the caller's skills with a project
// @Tags analytics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body types.SkillGapRequest true "Project"
// @Success 200 {object} types.SkillGapResponse
// @Router /api/skill_gap [post]
func (h *handlers) skillGap(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}

	var req types.SkillGapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.Respond(c, errors.FromBindingError(err))
		return
	}

	resp, err := h.service.AnalyzeSkillGap(c.Request.Context(), uid, req.ProjectID)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// trainAttendanceModel godoc
// @Summary Train the attendance risk classifier
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} types.TrainModelResponse
// @Router /api/train_attendance_model [post]
func (h *handlers) trainAttendanceModel(c *gin.Context) {
	resp, err := h.service.TrainAttendanceModel(c.Request.Context())
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// attendanceModel godoc
// @Summary Show the installed attendance model
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Router /api/admin/attendance_model [get]
func (h *handlers) attendanceModel(c *gin.Context) {
	model, err := h.service.ModelStatus()
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// predictAttendanceRisk godoc
// @Summary Predict per-subject attendance risk
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "User ID"
// @Success 200 {object} types.PredictionResponse
// @Router /api/predict_attendance_risk/{user_id} [get]
func (h *handlers) predictAttendanceRisk(c *gin.Context) {
	uid, ok := pathUserID(c)
	if !ok {
		return
	}

	resp, err := h.service.PredictAttendanceRisk(c.Request.Context(), uid)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// attendanceSummary godoc
// @Summary Summarise attendance per subject
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "User ID"
// @Success 200 {object} types.AttendanceSummaryResponse
// @Router /api/attendance_summary/{user_id} [get]
func (h *handlers) attendanceSummary(c *gin.Context) {
	uid, ok := pathUserID(c)
	if !ok {
		return
	}

	resp, err := h.service.AttendanceSummary(c.Request.Context(), uid)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// markAttendance godoc
// @Summary Record one class for the caller
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body types.MarkAttendanceRequest true "Subject"
// @Success 200 {object} types.MessageResponse
// @Router /api/mark_attendance [post]
func (h *handlers) markAttendance(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}

	var req types.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.Respond(c, errors.FromBindingError(err))
		return
	}
	attended := true
	if req.Attended != nil {
		attended = *req.Attended
	}

	resp, err := h.service.MarkAttendance(c.Request.Context(), uid, req.SubjectID, attended)
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listProjects godoc
// @Summary List project requirements
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} types.ProjectsResponse
// @Router /api/projects [get]
func (h *handlers) listProjects(c *gin.Context) {
	resp, err := h.service.ListProjects(c.Request.Context())
	if err != nil {
		errors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
