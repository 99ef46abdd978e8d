package handler

import (
	"net/http"
	"strconv"

	"github.com/andreypavlenko/jobber/internal/platform/auth"
	httpPlatform "github.com/andreypavlenko/jobber/internal/platform/http"
	"github.com/andreypavlenko/jobber/modules/notifications/model"
	"github.com/andreypavlenko/jobber/modules/notifications/ports"
	"github.com/andreypavlenko/jobber/modules/notifications/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles notification HTTP requests.
type NotificationHandler struct {
	service *service.NotificationService
}

func NewNotificationHandler(service *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List notifications
// @Description Get a paginated list of the authenticated user's notifications
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Number of items per page (default: 20, max: 100)"
// @Param offset query int false "Number of items to skip (default: 0)"
// @Param unread_only query bool false "Only return unread notifications"
// @Success 200 {object} httpPlatform.PaginatedResponse{items=[]model.NotificationDTO}
// @Failure 401 {object} httpPlatform.ErrorResponse
// @Failure 500 {object} httpPlatform.ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		httpPlatform.RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	pagination, err := httpPlatform.ParsePaginationParams(c)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "INVALID_PAGINATION_PARAMS", "Invalid pagination parameters")
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))

	opts := &ports.ListOptions{Limit: pagination.Limit, Offset: pagination.Offset, UnreadOnly: unreadOnly}

	notifications, total, err := h.service.List(c.Request.Context(), userID, opts)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list notifications")
		return
	}

	httpPlatform.RespondWithPagination(c, http.StatusOK, notifications, pagination.Limit, pagination.Offset, total)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} map[string]string
// @Failure 401 {object} httpPlatform.ErrorResponse
// @Failure 404 {object} httpPlatform.ErrorResponse "Notification not found"
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		httpPlatform.RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	notificationID := c.Param("id")

	if err := h.service.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		errorCode := model.GetErrorCode(err)
		errorMessage := model.GetErrorMessage(err)

		statusCode := http.StatusInternalServerError
		if errorCode == model.CodeNotificationNotFound {
			statusCode = http.StatusNotFound
		}

		httpPlatform.RespondWithError(c, statusCode, string(errorCode), errorMessage)
		return
	}

	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// RegisterRoutes registers notification routes.
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	notifications := router.Group("/notifications")
	notifications.Use(authMiddleware)
	{
		notifications.GET("", h.List)
		notifications.POST("/:id/read", h.MarkRead)
	}
}
