package app

import (
	"classassess_backend/docs"
	"classassess_backend/internal/config"
	"classassess_backend/internal/middleware"
	"classassess_backend/internal/model"
	"classassess_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// Public routes
	router.POST("/api/register", c.auth.Register)
	router.POST("/api/login", c.auth.Login)
	router.GET("/api/health", c.health.Health)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.Profile)

		// Notifications, any authenticated user
		authGroup.GET("/notifications", c.notification.List)
		authGroup.POST("/notifications/:id/read", c.notification.MarkRead)
		authGroup.GET("/notifications/ws", c.notification.Stream)

		// Student routes
		student := authGroup.Group("")
		student.Use(middleware.RoleMiddleware(model.Student))
		{
			student.GET("/tests", c.test.ListAvailableTests)
			student.GET("/tests/:id", c.test.GetTestForStudent)
			student.POST("/tests/:id/progress", c.submission.SaveProgress)
			student.POST("/tests/:id/submit", c.submission.Submit)
			student.GET("/submissions", c.submission.ListMine)
			student.POST("/submissions/:id/appeals", c.appeal.SubmitAppeal)
		}

		// Result and appeal reads carry their own ownership checks.
		authGroup.GET("/submissions/:id/results", c.submission.GetResults)
		authGroup.GET("/appeals/:id", c.appeal.GetAppeal)

		// Lecturer routes
		lecturer := authGroup.Group("/lecturer")
		lecturer.Use(middleware.RoleMiddleware(model.Lecturer))
		{
			lecturer.POST("/modules", c.test.CreateModule)
			lecturer.GET("/modules", c.test.ListModules)

			lecturer.POST("/tests", c.test.CreateTest)
			lecturer.GET("/tests", c.test.ListLecturerTests)
			lecturer.GET("/tests/:id", c.test.GetTest)
			lecturer.PUT("/tests/:id", c.test.UpdateTest)
			lecturer.POST("/tests/:id/cancel", c.test.CancelTest)
			lecturer.POST("/tests/:id/questions", c.test.AddQuestion)
			lecturer.DELETE("/tests/:id/questions/:questionId", c.test.DeleteQuestion)
			lecturer.GET("/tests/:id/submissions", c.submission.ListByTest)

			lecturer.GET("/appeals", c.appeal.ListPending)
			lecturer.GET("/appeals/count", c.appeal.CountPending)
			lecturer.POST("/appeals/:id/resolve", c.appeal.ResolveWhole)
			lecturer.POST("/appeals/:id/resolve-batch", c.appeal.ResolveBatch)
			lecturer.POST("/appeals/:id/questions/:questionId/resolve", c.appeal.ResolveQuestion)
		}
	}
}
