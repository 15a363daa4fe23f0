package router

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"WeddingRSVP/config"
	"WeddingRSVP/internal/handler"
	"WeddingRSVP/internal/middleware"
)

// Register 注册全部路由。tracing 为 hertz tracing 中间件，未启用 OTel 时为 nil
func Register(h *server.Hertz, tracing app.HandlerFunc) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	if tracing != nil {
		h.Use(tracing)
	}
	h.Use(middleware.MetricsMiddleware())
	if config.Cfg.CSRFEnabled {
		h.Use(middleware.CSRFMiddleware(config.Cfg.SessionSecret)...)
	}

	v1 := h.Group("/v1")

	v1.GET("/invitations/:invitation_id", handler.GetInvitation)
	v1.GET("/allergies/suggestions", handler.GetAllergySuggestions)
	v1.GET("/countdown", handler.GetCountdown)
	if config.Cfg.CSRFEnabled {
		v1.GET("/csrf-token", handler.GetCSRFToken)
	}

	// 表单会话
	forms := v1.Group("/rsvp/forms")
	{
		forms.POST("", handler.CreateForm)
		forms.GET("/:form_id", handler.GetForm)
		forms.PUT("/:form_id/contact", handler.UpdateContact)
		forms.PUT("/:form_id/message", handler.UpdateMessage)
		forms.POST("/:form_id/postal-lookup", middleware.PostalLookupRateLimitMiddleware(), handler.PostalLookup)

		forms.POST("/:form_id/submit", middleware.SubmitRateLimitMiddleware(), handler.SubmitForm)
		forms.POST("/:form_id/resubmit", middleware.SubmitRateLimitMiddleware(), handler.ResubmitForm)
	}

	// 出席者
	attendees := forms.Group("/:form_id/attendees")
	{
		attendees.POST("", handler.AddAttendee)
		attendees.PATCH("/:attendee_id", handler.UpdateAttendee)
		attendees.DELETE("/:attendee_id", handler.RemoveAttendee)
		attendees.PUT("/:attendee_id/attendance/:event", handler.SetAttendance)
		attendees.POST("/:attendee_id/allergies", handler.EditAllergies)
		attendees.DELETE("/:attendee_id/allergies", handler.RemoveAllergy)
	}
}
