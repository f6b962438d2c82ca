package api

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)

	r.GET("/authorize/google", h.AuthorizeGoogle)
	r.GET("/authorize/microsoft", h.AuthorizeMicrosoft)

	// Callbacks are called by the providers with the state param we issued
	r.GET("/auth/callback", h.GoogleCallback)
	r.GET("/auth/entra/callback", h.MicrosoftCallback)

	r.GET("/events", h.GoogleEvents)
	r.GET("/events/ms", h.MicrosoftEvents)
	r.GET("/prompt", h.Prompt)
}
