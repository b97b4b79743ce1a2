package controller

import (
	"classassess_backend/internal/model"
	"classassess_backend/internal/service"
	"classassess_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	GradingService    *service.GradingService
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(grading *service.GradingService, submissions *service.SubmissionService) *SubmissionController {
	return &SubmissionController{GradingService: grading, SubmissionService: submissions}
}

// AnswersRequest maps question IDs to raw answer values: the selected
// option ID for MCQ questions, free text otherwise.
type AnswersRequest struct {
	Answers map[uint]string `json:"answers" binding:"required"`
}

// SaveProgress godoc
// @Summary Save in-progress answers
// @Description Upserts draft answers without grading; callable any number of times before submit
// @Tags submissions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Param   body body AnswersRequest true "Draft answers"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response "Window closed or already submitted"
// @Router /api/tests/{id}/progress [post]
func (c *SubmissionController) SaveProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req AnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.GradingService.SaveProgress(ctx.Request.Context(), claims.UserID, testID, req.Answers)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// Submit godoc
// @Summary Submit a test for grading
// @Description Grades every question and returns the graded submission; a submission can only be submitted once
// @Tags submissions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Param   body body AnswersRequest true "Final answers"
// @Success 200 {object} util.Response{data=model.Submission}
// @Failure 409 {object} util.Response "Window closed or already submitted"
// @Router /api/tests/{id}/submit [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req AnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.GradingService.GradeSubmission(ctx.Request.Context(), claims.UserID, testID, req.Answers)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}

// ListMine godoc
// @Summary List the student's submissions
// @Tags submissions
// @Produce  json
// @Security BearerAuth
// @Param   status query string false "Filter by status" Enums(IN_PROGRESS, SUBMITTED, GRADED)
// @Success 200 {object} util.Response{data=[]model.Submission}
// @Router /api/submissions [get]
func (c *SubmissionController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	status := model.SubmissionStatus(ctx.Query("status"))

	subs, err := c.SubmissionService.ListByStudent(claims.UserID, status)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}

// GetResults godoc
// @Summary Detailed graded results
// @Description Per-question scores, feedback and revealed correct answers, plus the latest appeal if any
// @Tags submissions
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Submission ID"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 409 {object} util.Response "Not graded yet"
// @Router /api/submissions/{id}/results [get]
func (c *SubmissionController) GetResults(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	submissionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.SubmissionService.GetResults(claims.UserID, claims.Role, submissionID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ListByTest godoc
// @Summary List submissions against one of the lecturer's tests
// @Tags submissions
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Success 200 {object} util.Response{data=[]model.Submission}
// @Router /api/lecturer/tests/{id}/submissions [get]
func (c *SubmissionController) ListByTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	subs, err := c.SubmissionService.ListByTest(claims.UserID, testID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, subs)
}
