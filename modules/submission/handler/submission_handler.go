package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andreypavlenko/jobber/internal/platform/apperror"
	"github.com/andreypavlenko/jobber/internal/platform/auth"
	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	appPorts "github.com/andreypavlenko/jobber/modules/applications/ports"
	jobsPorts "github.com/andreypavlenko/jobber/modules/jobs/ports"
	quotaModel "github.com/andreypavlenko/jobber/modules/quota/model"
	resumesPorts "github.com/andreypavlenko/jobber/modules/resumes/ports"
	"github.com/andreypavlenko/jobber/modules/submission/service"
	usersPorts "github.com/andreypavlenko/jobber/modules/users/ports"
)

// SubmitRequest picks which usage counter the submission is billed
// against. Left empty, it defaults to manual_application: the common case
// of a candidate clicking "submit" on one job they picked themselves.
type SubmitRequest struct {
	UsageType quotaModel.EventType `json:"usage_type"`
}

// SubmissionHandler exposes the Submission Router (C7) as one HTTP
// endpoint: it owns none of the submit logic itself, only the job of
// loading the application's job/resume/user rows and handing them to the
// service.
type SubmissionHandler struct {
	submission *service.SubmissionService
	apps       appPorts.ApplicationRepository
	jobs       jobsPorts.JobRepository
	resumes    resumesPorts.ResumeRepository
	users      usersPorts.UserRepository
}

func NewSubmissionHandler(
	submission *service.SubmissionService,
	apps appPorts.ApplicationRepository,
	jobs jobsPorts.JobRepository,
	resumes resumesPorts.ResumeRepository,
	users usersPorts.UserRepository,
) *SubmissionHandler {
	return &SubmissionHandler{submission: submission, apps: apps, jobs: jobs, resumes: resumes, users: users}
}

// Submit godoc
// @Summary Submit an application
// @Description Dispatch an application through the submission router (email or browser automation)
// @Tags submission
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body SubmitRequest false "Usage type override"
// @Success 200 {object} model.Outcome
// @Failure 400 {object} httpPlatform.ErrorResponse
// @Failure 401 {object} httpPlatform.ErrorResponse
// @Failure 402 {object} httpPlatform.ErrorResponse
// @Failure 404 {object} httpPlatform.ErrorResponse
// @Failure 500 {object} httpPlatform.ErrorResponse
// @Router /applications/{id}/submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		httpPlatform.RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}
	appID := c.Param("id")

	var req SubmitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
			return
		}
	}
	if req.UsageType == "" {
		req.UsageType = quotaModel.EventManualApplication
	}

	ctx := c.Request.Context()

	app, err := h.apps.GetByID(ctx, userID, appID)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusNotFound, "APPLICATION_NOT_FOUND", "Application not found")
		return
	}

	job, err := h.jobs.GetByID(ctx, userID, app.JobID)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
		return
	}

	resume, err := h.resumes.GetByID(ctx, userID, app.ResumeID)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusNotFound, "RESUME_NOT_FOUND", "Resume not found")
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}

	outcome, err := h.submission.Submit(ctx, user, appID, job, resume, req.UsageType)
	if err != nil {
		status, code := submitErrorStatus(err)
		httpPlatform.RespondWithError(c, status, code, err.Error())
		return
	}

	httpPlatform.RespondWithData(c, http.StatusOK, outcome)
}

// submitErrorStatus maps the closed apperror.Kind set (and the quota
// subsystem's own sentinel) onto an HTTP status, falling back to 500 for
// anything the router didn't tag.
func submitErrorStatus(err error) (int, string) {
	if errors.Is(err, quotaModel.ErrQuotaDenied) {
		return http.StatusPaymentRequired, "QUOTA_DENIED"
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperror.KindQuotaDenied:
			return http.StatusPaymentRequired, "QUOTA_DENIED"
		case apperror.KindNotFound:
			return http.StatusNotFound, "NOT_FOUND"
		case apperror.KindConflict:
			return http.StatusConflict, "CONFLICT"
		case apperror.KindAuthExpired:
			return http.StatusUnauthorized, "AUTH_EXPIRED"
		case apperror.KindExternalUnavailable:
			return http.StatusBadGateway, "EXTERNAL_UNAVAILABLE"
		case apperror.KindInvariant:
			return http.StatusBadRequest, "INVALID_SUBMISSION"
		}
	}
	return http.StatusInternalServerError, "SUBMISSION_ERROR"
}

func (h *SubmissionHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	apps := router.Group("/applications")
	apps.Use(authMiddleware)
	{
		apps.POST("/:id/submit", h.Submit)
	}
}
