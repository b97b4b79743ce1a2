package controller

import (
	"classassess_backend/internal/service"
	"classassess_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AppealController struct {
	AppealService *service.AppealService
}

func NewAppealController(appealService *service.AppealService) *AppealController {
	return &AppealController{AppealService: appealService}
}

// SubmitAppeal godoc
// @Summary Appeal a graded submission
// @Description Opens an appeal on the student's own submission; only one PENDING appeal may exist per submission
// @Tags appeals
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Submission ID"
// @Param   body body service.AppealRequest true "Disputed questions and reasons"
// @Success 201 {object} util.Response{data=model.Appeal}
// @Failure 409 {object} util.Response "Pending appeal already exists"
// @Router /api/submissions/{id}/appeals [post]
func (c *AppealController) SubmitAppeal(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	submissionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.AppealRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	appeal, err := c.AppealService.SubmitAppeal(ctx.Request.Context(), claims.UserID, submissionID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, appeal)
}

// GetAppeal godoc
// @Summary Get an appeal
// @Tags appeals
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Appeal ID"
// @Success 200 {object} util.Response{data=model.Appeal}
// @Router /api/appeals/{id} [get]
func (c *AppealController) GetAppeal(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	appealID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	appeal, err := c.AppealService.GetAppeal(claims.UserID, claims.Role, appealID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, appeal)
}

// ListPending godoc
// @Summary List pending appeals on the lecturer's tests
// @Tags appeals
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Appeal}
// @Router /api/lecturer/appeals [get]
func (c *AppealController) ListPending(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	appeals, err := c.AppealService.ListPending(claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, appeals)
}

// CountPending godoc
// @Summary Pending appeal count for the lecturer dashboard
// @Tags appeals
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/lecturer/appeals/count [get]
func (c *AppealController) CountPending(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	n, err := c.AppealService.CountPending(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"pending": n})
}

// ResolveQuestion godoc
// @Summary Resolve a single disputed question
// @Description Approving with a replacement score rewrites that answer and re-aggregates; once every disputed question has a verdict the appeal auto-closes by strict majority
// @Tags appeals
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Appeal ID"
// @Param   questionId path int true "Question ID"
// @Param   body body service.ResolveQuestionRequest true "Verdict"
// @Success 200 {object} util.Response{data=model.Appeal}
// @Failure 409 {object} util.Response "Appeal already resolved"
// @Router /api/lecturer/appeals/{id}/questions/{questionId}/resolve [post]
func (c *AppealController) ResolveQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	appealID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	var req service.ResolveQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	appeal, err := c.AppealService.ResolveQuestion(ctx.Request.Context(), claims.UserID, appealID, questionID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, appeal)
}

// ResolveBatch godoc
// @Summary Resolve several disputed questions with one verdict
// @Description Applies one uniform approve/reject outcome and closes the appeal immediately
// @Tags appeals
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Appeal ID"
// @Param   body body service.ResolveBatchRequest true "Verdict with per-question scores"
// @Success 200 {object} util.Response{data=model.Appeal}
// @Failure 409 {object} util.Response "Appeal already resolved"
// @Router /api/lecturer/appeals/{id}/resolve-batch [post]
func (c *AppealController) ResolveBatch(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	appealID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.ResolveBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	appeal, err := c.AppealService.ResolveBatch(ctx.Request.Context(), claims.UserID, appealID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, appeal)
}

// ResolveWhole godoc
// @Summary Resolve the appeal as a unit
// @Description Approval with newScore overrides the submission total directly; rejection restores the original score
// @Tags appeals
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Appeal ID"
// @Param   body body service.ResolveWholeRequest true "Verdict"
// @Success 200 {object} util.Response{data=model.Appeal}
// @Failure 409 {object} util.Response "Appeal already resolved"
// @Router /api/lecturer/appeals/{id}/resolve [post]
func (c *AppealController) ResolveWhole(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	appealID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.ResolveWholeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	appeal, err := c.AppealService.ResolveWhole(ctx.Request.Context(), claims.UserID, appealID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, appeal)
}
