package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"form-workflow-api/controllers"
	"form-workflow-api/middleware"
	"form-workflow-api/models"
	"form-workflow-api/services"
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	DB             *gorm.DB
	JWTSecret      []byte
	AllowedOrigins []string

	Forms         *services.FormService
	Audit         *services.AuditService
	Notifications *services.NotificationService
	Templates     services.TemplateStore
}

// NewRouter builds the engine with the shared middleware chain and all routes mounted.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	SetupRoutes(router, deps)
	return router
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	forms := controllers.NewFormController(deps.Forms, deps.Audit)
	notifications := controllers.NewNotificationController(deps.Notifications)
	audit := controllers.NewAuditController(deps.Audit)
	templates := controllers.NewTemplateController(deps.Templates)

	reviewers := middleware.RequireRole(models.RoleApprover, models.RoleAdmin)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Form Workflow API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.DB))
	{
		// Templates
		tmpl := protected.Group("/templates")
		{
			tmpl.GET("", templates.ListActive)
			tmpl.GET("/available", templates.ListAvailable)
			tmpl.GET("/:id", templates.Get)
		}

		// Forms
		f := protected.Group("/forms")
		{
			f.POST("", forms.Submit)
			f.GET("/mine", forms.ListMine)
			f.GET("/pending", reviewers, forms.ListPending)
			f.GET("/filter", reviewers, forms.Filter)
			f.POST("/bulk/approve", reviewers, forms.BulkApprove)
			f.POST("/bulk/reject", reviewers, forms.BulkReject)

			f.GET("/:id", forms.Get)
			f.PUT("/:id/step", forms.UpdateStep)
			f.POST("/:id/approve", forms.Approve)
			f.POST("/:id/reject", forms.Reject)

			f.GET("/:id/comments", forms.ListComments)
			f.POST("/:id/comments", forms.AddComment)

			f.GET("/:id/attachments", forms.ListAttachments)
			f.POST("/:id/attachments", forms.AttachFile)
			f.DELETE("/:id/attachments/:attachmentId", forms.DetachFile)

			f.GET("/:id/audit", forms.AuditTrail)
		}

		// Notifications
		n := protected.Group("/notifications")
		{
			n.GET("", notifications.List)
			n.GET("/unread", notifications.Unread)
			n.GET("/stats", notifications.Stats)
			n.GET("/form/:formId", notifications.ForForm)
			n.PUT("/read-all", notifications.MarkAllRead)
			n.PUT("/:id/read", notifications.MarkRead)
			n.PUT("/:id/archive", notifications.Archive)
			n.DELETE("/:id", notifications.Delete)
		}

		// Audit
		a := protected.Group("/audit", reviewers)
		{
			a.GET("", audit.Search)
			a.GET("/stats", audit.Stats)
			a.GET("/users/:userId", audit.ByUser)
		}
	}
}
