package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andreypavlenko/jobber/internal/platform/auth"
	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/modules/applications/model"
	"github.com/andreypavlenko/jobber/modules/applications/ports"
	"github.com/andreypavlenko/jobber/modules/applications/service"
)

type ApplicationHandler struct {
	service *service.ApplicationService
}

func NewApplicationHandler(service *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

func statusCodeFor(err error) int {
	switch model.GetErrorCode(err) {
	case model.CodeApplicationNotFound, model.CodeInterviewNotFound, model.CodeTaskNotFound:
		return http.StatusNotFound
	case model.CodeInvalidStatus, model.CodeTerminalStatus, model.CodeTitleRequired:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	httpPlatform.RespondWithError(c, statusCodeFor(err), string(model.GetErrorCode(err)), model.GetErrorMessage(err))
}

// Create godoc
// @Summary Create a new application
// @Description Create a new job application linking a job and resume
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body model.CreateApplicationRequest true "Application details"
// @Success 201 {object} model.ApplicationDTO
// @Failure 400 {object} httpPlatform.ErrorResponse
// @Failure 401 {object} httpPlatform.ErrorResponse
// @Failure 500 {object} httpPlatform.ErrorResponse
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}

	app, err := h.service.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, app)
}

// Get godoc
// @Summary Get an application
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} model.ApplicationDTO
// @Failure 401 {object} httpPlatform.ErrorResponse
// @Failure 404 {object} httpPlatform.ErrorResponse "Application not found"
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	app, err := h.service.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, app)
}

// List godoc
// @Summary List applications
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Number of items per page (default: 20, max: 100)"
// @Param offset query int false "Number of items to skip (default: 0)"
// @Param sort_by query string false "Sort field: last_activity, status, applied_at"
// @Param sort_dir query string false "Sort direction: asc, desc"
// @Param status query string false "Filter by exact status"
// @Param company query string false "Filter by company name substring (case-insensitive)"
// @Param priority query string false "Filter by exact priority"
// @Param applied_after query string false "Filter by applied_at >= this RFC3339 timestamp"
// @Param applied_before query string false "Filter by applied_at <= this RFC3339 timestamp"
// @Param has_interviews query bool false "Filter by whether at least one interview is recorded"
// @Param needs_follow_up query bool false "Filter to applications whose follow_up_date has passed"
// @Param has_response query bool false "Filter by whether a recruiter response has been recorded"
// @Param q query string false "Free-text search across title/company/location"
// @Success 200 {object} httpPlatform.PaginatedResponse{items=[]model.ApplicationDTO}
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	pagination, err := httpPlatform.ParsePaginationParams(c)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "INVALID_PAGINATION_PARAMS", "Invalid pagination parameters")
		return
	}

	opts := &ports.ListOptions{
		Limit:         pagination.Limit,
		Offset:        pagination.Offset,
		SortBy:        c.DefaultQuery("sort_by", "last_activity"),
		SortDir:       c.DefaultQuery("sort_dir", "desc"),
		Status:        c.Query("status"),
		Company:       c.Query("company"),
		Priority:      c.Query("priority"),
		Query:         c.Query("q"),
		NeedsFollowUp: c.Query("needs_follow_up") == "true",
	}
	if v := c.Query("applied_after"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.AppliedAfter = &t
		}
	}
	if v := c.Query("applied_before"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.AppliedBefore = &t
		}
	}
	if v := c.Query("has_interviews"); v != "" {
		b := v == "true"
		opts.HasInterviews = &b
	}
	if v := c.Query("has_response"); v != "" {
		b := v == "true"
		opts.HasResponse = &b
	}

	apps, total, err := h.service.List(c.Request.Context(), userID, opts)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list applications")
		return
	}
	httpPlatform.RespondWithPagination(c, http.StatusOK, apps, pagination.Limit, pagination.Offset, total)
}

// UpdateStatus godoc
// @Summary Explicitly set an application's status
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body model.UpdateStatusRequest true "New status"
// @Success 200 {object} model.ApplicationDTO
// @Failure 400 {object} httpPlatform.ErrorResponse
// @Failure 404 {object} httpPlatform.ErrorResponse
// @Router /applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.UpdateStatus(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, app)
}

// UpdatePriority godoc
// @Summary Set an application's priority
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body model.UpdatePriorityRequest true "New priority"
// @Success 200 {object} model.ApplicationDTO
// @Router /applications/{id}/priority [patch]
func (h *ApplicationHandler) UpdatePriority(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.UpdatePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.UpdatePriority(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, app)
}

// UpdateNotes godoc
// @Summary Replace an application's notes
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body model.UpdateNotesRequest true "Notes"
// @Success 200 {object} model.ApplicationDTO
// @Router /applications/{id}/notes [patch]
func (h *ApplicationHandler) UpdateNotes(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.UpdateNotes(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, app)
}

// SetFollowUp godoc
// @Summary Schedule or clear an application's follow-up date
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body model.SetFollowUpRequest true "Follow-up date"
// @Success 200 {object} model.ApplicationDTO
// @Router /applications/{id}/follow-up [patch]
func (h *ApplicationHandler) SetFollowUp(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.SetFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.SetFollowUp(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, app)
}

// AddCommunication godoc
// @Summary Record a communication against an application
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body model.AddCommunicationRequest true "Communication details"
// @Success 201 {object} model.ApplicationDTO
// @Router /applications/{id}/communications [post]
func (h *ApplicationHandler) AddCommunication(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.AddCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.AddCommunication(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, app)
}

// AddDocument godoc
// @Summary Attach a document to an application
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body model.AddDocumentRequest true "Document details"
// @Success 201 {object} model.ApplicationDTO
// @Router /applications/{id}/documents [post]
func (h *ApplicationHandler) AddDocument(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.AddDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.AddDocument(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, app)
}

// ScheduleInterview godoc
// @Summary Schedule an interview round
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body model.ScheduleInterviewRequest true "Interview details"
// @Success 201 {object} model.ApplicationDTO
// @Router /applications/{id}/interviews [post]
func (h *ApplicationHandler) ScheduleInterview(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.ScheduleInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.ScheduleInterview(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, app)
}

// UpdateInterview godoc
// @Summary Record an interview's outcome
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param interviewId path string true "Interview ID"
// @Param request body model.UpdateInterviewRequest true "Outcome"
// @Success 200 {object} model.ApplicationDTO
// @Router /applications/{id}/interviews/{interviewId} [patch]
func (h *ApplicationHandler) UpdateInterview(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.UpdateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.UpdateInterview(c.Request.Context(), userID, c.Param("id"), c.Param("interviewId"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, app)
}

// AddTask godoc
// @Summary Add a to-do item to an application
// @Tags applications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param request body model.AddTaskRequest true "Task details"
// @Success 201 {object} model.ApplicationDTO
// @Router /applications/{id}/tasks [post]
func (h *ApplicationHandler) AddTask(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	var req model.AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}
	app, err := h.service.AddTask(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, app)
}

// CompleteTask godoc
// @Summary Mark a task done
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Param taskId path string true "Task ID"
// @Success 200 {object} model.ApplicationDTO
// @Router /applications/{id}/tasks/{taskId}/complete [patch]
func (h *ApplicationHandler) CompleteTask(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	app, err := h.service.CompleteTask(c.Request.Context(), userID, c.Param("id"), c.Param("taskId"))
	if err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, app)
}

// Delete godoc
// @Summary Soft-delete an application
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} map[string]string
// @Router /applications/{id} [delete]
func (h *ApplicationHandler) Delete(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"message": "Application deleted successfully"})
}

// FollowUpsNeeded godoc
// @Summary List applications due for a follow-up
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} []model.ApplicationDTO
// @Router /applications/follow-ups [get]
func (h *ApplicationHandler) FollowUpsNeeded(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	apps, err := h.service.FollowUpsNeeded(c.Request.Context(), userID)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list follow-ups")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, apps)
}

// UpcomingInterviews godoc
// @Summary List interviews scheduled within the next N days
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Param days query int false "Lookahead window in days (default: 7)"
// @Success 200 {object} []model.ApplicationDTO
// @Router /applications/upcoming-interviews [get]
func (h *ApplicationHandler) UpcomingInterviews(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	days := 7
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	apps, err := h.service.UpcomingInterviews(c.Request.Context(), userID, days)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list upcoming interviews")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, apps)
}

// Stats godoc
// @Summary Application dashboard counters
// @Tags applications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} ports.Stats
// @Router /applications/stats [get]
func (h *ApplicationHandler) Stats(c *gin.Context) {
	userID, ok := auth.MustGetUserID(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), userID)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute stats")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, stats)
}

func (h *ApplicationHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	apps := router.Group("/applications")
	apps.Use(authMiddleware)
	{
		apps.POST("", h.Create)
		apps.GET("", h.List)
		apps.GET("/stats", h.Stats)
		apps.GET("/follow-ups", h.FollowUpsNeeded)
		apps.GET("/upcoming-interviews", h.UpcomingInterviews)
		apps.GET("/:id", h.Get)
		apps.PATCH("/:id/status", h.UpdateStatus)
		apps.PATCH("/:id/priority", h.UpdatePriority)
		apps.PATCH("/:id/notes", h.UpdateNotes)
		apps.PATCH("/:id/follow-up", h.SetFollowUp)
		apps.POST("/:id/communications", h.AddCommunication)
		apps.POST("/:id/documents", h.AddDocument)
		apps.POST("/:id/interviews", h.ScheduleInterview)
		apps.PATCH("/:id/interviews/:interviewId", h.UpdateInterview)
		apps.POST("/:id/tasks", h.AddTask)
		apps.PATCH("/:id/tasks/:taskId/complete", h.CompleteTask)
		apps.DELETE("/:id", h.Delete)
	}
}
