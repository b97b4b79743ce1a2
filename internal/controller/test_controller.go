package controller

import (
	"classassess_backend/internal/service"
	"classassess_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	TestService *service.TestService
}

func NewTestController(testService *service.TestService) *TestController {
	return &TestController{TestService: testService}
}

// CreateTest godoc
// @Summary Create a test
// @Description Creates a test with its questions; MCQ questions carry exactly one correct option
// @Tags tests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateTestRequest true "Test definition"
// @Success 201 {object} util.Response{data=model.Test}
// @Failure 400 {object} util.Response
// @Router /api/lecturer/tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req service.CreateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.CreateTest(claims.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, test)
}

// UpdateTest godoc
// @Summary Update a test
// @Description Edits scheduling metadata; refused once the window has opened
// @Tags tests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Param   body body service.UpdateTestRequest true "Fields to change"
// @Success 200 {object} util.Response{data=model.Test}
// @Failure 409 {object} util.Response "Test already started"
// @Router /api/lecturer/tests/{id} [put]
func (c *TestController) UpdateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.UpdateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.UpdateTest(claims.UserID, testID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// CancelTest godoc
// @Summary Cancel a test
// @Description Moves an ACTIVE test to CANCELLED before its window opens; CANCELLED is terminal
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "Test already started or cancelled"
// @Router /api/lecturer/tests/{id}/cancel [post]
func (c *TestController) CancelTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.TestService.CancelTest(claims.UserID, testID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"cancelled": true})
}

// AddQuestion godoc
// @Summary Add a question to a test
// @Tags tests
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Param   body body service.QuestionRequest true "Question"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/lecturer/tests/{id}/questions [post]
func (c *TestController) AddQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.TestService.AddQuestion(claims.UserID, testID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// DeleteQuestion godoc
// @Summary Delete a question from a test
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Param   questionId path int true "Question ID"
// @Success 200 {object} util.Response
// @Router /api/lecturer/tests/{id}/questions/{questionId} [delete]
func (c *TestController) DeleteQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	if err := c.TestService.DeleteQuestion(claims.UserID, testID, questionID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// GetTest godoc
// @Summary Get one of the lecturer's tests
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Success 200 {object} util.Response{data=model.Test}
// @Router /api/lecturer/tests/{id} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	test, err := c.TestService.GetTest(claims.UserID, testID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// ListLecturerTests godoc
// @Summary List the lecturer's tests
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Test}
// @Router /api/lecturer/tests [get]
func (c *TestController) ListLecturerTests(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	tests, err := c.TestService.ListByLecturer(claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// GetTestForStudent godoc
// @Summary Get a test for taking
// @Description Returns the test with correct answers and option flags stripped
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "Test ID"
// @Success 200 {object} util.Response{data=model.Test}
// @Failure 409 {object} util.Response "Test cancelled"
// @Router /api/tests/{id} [get]
func (c *TestController) GetTestForStudent(ctx *gin.Context) {
	testID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	test, err := c.TestService.GetTestForStudent(testID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// ListAvailableTests godoc
// @Summary List tests open or upcoming for students
// @Tags tests
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Test}
// @Router /api/tests [get]
func (c *TestController) ListAvailableTests(ctx *gin.Context) {
	tests, err := c.TestService.ListAvailable()
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// CreateModule godoc
// @Summary Create a course module
// @Tags modules
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateModuleRequest true "Module"
// @Success 201 {object} util.Response{data=model.Module}
// @Router /api/lecturer/modules [post]
func (c *TestController) CreateModule(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req service.CreateModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	m, err := c.TestService.CreateModule(claims.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, m)
}

// ListModules godoc
// @Summary List the lecturer's modules
// @Tags modules
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Module}
// @Router /api/lecturer/modules [get]
func (c *TestController) ListModules(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	ms, err := c.TestService.ListModules(claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, ms)
}

// pathID parses a positive integer path parameter, replying 400 itself
// on bad input.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || v == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}
