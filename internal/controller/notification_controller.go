package controller

import (
	"classassess_backend/internal/service"
	"classassess_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
	Hub                 *service.NotificationHub
}

func NewNotificationController(notifications *service.NotificationService, hub *service.NotificationHub) *NotificationController {
	return &NotificationController{NotificationService: notifications, Hub: hub}
}

// List godoc
// @Summary List the user's notifications
// @Tags notifications
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "Page" default(1)
// @Param   limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/notifications [get]
func (c *NotificationController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ns, total, err := c.NotificationService.ListForUser(claims.UserID, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: ns, Total: total, Page: page, Limit: limit})
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags notifications
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "Notification ID"
// @Success 200 {object} util.Response
// @Router /api/notifications/{id}/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := ctx.Param("id")
	if id == "" {
		util.BadRequest(ctx, "invalid id")
		return
	}

	if err := c.NotificationService.MarkRead(id, claims.UserID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"read": true})
}

// Stream godoc
// @Summary Real-time notification stream
// @Description Upgrades to a WebSocket pushing notification events; authenticate with ?token=
// @Tags notifications
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols"
// @Router /api/notifications/ws [get]
func (c *NotificationController) Stream(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	c.Hub.ServeWs(ctx.Writer, ctx.Request, claims.UserID)
}
