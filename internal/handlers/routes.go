package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterDeps carries everything the HTTP surface is assembled from.
type RouterDeps struct {
	Middleware *Middleware
	Auth       *AuthHandler
	WhatsApp   *WhatsAppHandler
	API        *APIHandler
	Admin      *AdminHandler
	CORSOrigin string
	RateLimit  rate.Limit
	RateBurst  int
	Logger     *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(d.Logger))
	router.Use(CORS(d.CORSOrigin))

	// WhatsApp webhook, mounted at both paths Meta may be configured with
	for _, path := range []string{"/whatsapp/webhook", "/api/whatsapp/webhook"} {
		router.GET(path, d.WhatsApp.VerifyWebhook)
		router.POST(path, d.WhatsApp.HandleWebhook)
	}

	api := router.Group("/api")
	api.GET("/health", d.API.Health)
	api.GET("/meta-config", d.API.MetaConfig)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", d.Auth.Signup)
		auth.POST("/login", d.Auth.Login)
		auth.POST("/logout", d.Auth.Logout)
		auth.GET("/me", d.Middleware.AuthRequired(), d.Auth.Me)
	}

	owner := api.Group("")
	owner.Use(d.Middleware.AuthRequired(), d.Middleware.RateLimitPerUser(d.RateLimit, d.RateBurst))
	{
		integration := owner.Group("/integrations/whatsapp")
		integration.POST("/connect", d.WhatsApp.Connect)
		integration.POST("/callback", d.WhatsApp.Callback)
		integration.POST("/disconnect", d.WhatsApp.Disconnect)
		integration.GET("/status", d.WhatsApp.Status)
		integration.GET("/qrcode", d.WhatsApp.QRCode)

		owner.GET("/bots", d.API.ListBots)
		owner.POST("/bots", d.API.CreateBot)
		owner.PUT("/bots/:id", d.API.UpdateBot)
		owner.DELETE("/bots/:id", d.API.DeleteBot)
		owner.PATCH("/bots/:id/status", d.API.ToggleBot)

		owner.GET("/businesses/my-business", d.API.MyBusiness)
		owner.POST("/businesses/business-info", d.API.SaveBusinessInfo)

		owner.GET("/user-settings", d.API.GetSettings)
		owner.PUT("/user-settings", d.API.UpdateSettings)
		owner.GET("/user-settings/sessions", d.API.ListSessions)
		owner.DELETE("/user-settings/sessions/:id", d.API.RevokeSession)

		conversations := owner.Group("/conversations")
		conversations.GET("/stats", d.API.ConversationStats)
		conversations.GET("/analytics", d.API.ConversationAnalytics)
		conversations.GET("/over-time", d.API.ConversationsOverTime)
		conversations.GET("/by-bot", d.API.ConversationsByBot)
		conversations.GET("/list", d.API.ListConversations)
		conversations.POST("", d.API.SaveConversation)
		conversations.GET("/:businessId/:phoneNumber", d.API.ConversationThread)

		owner.GET("/dashboard/stats", d.API.DashboardStats)
		owner.GET("/dashboard/activity", d.API.DashboardActivity)
	}

	admin := api.Group("/admin")
	admin.Use(d.Middleware.AuthRequired(), d.Middleware.AdminRequired())
	{
		admin.GET("/overview", d.Admin.Overview)
		admin.GET("/users", d.Admin.ListUsers)
		admin.GET("/users/:id", d.Admin.GetUser)
		admin.PATCH("/users/:id/status", d.Admin.UpdateUserStatus)
		admin.GET("/businesses", d.Admin.ListBusinesses)
		admin.GET("/analytics", d.Admin.Analytics)
		admin.GET("/health", d.Admin.Health)
		admin.GET("/settings", d.Admin.GetSettings)
		admin.PUT("/settings", d.Admin.UpdateSettings)
		admin.GET("/backups", d.Admin.ListBackups)
		admin.POST("/backups", d.Admin.CreateBackup)
		admin.GET("/backups/:id/download", d.Admin.DownloadBackup)
		admin.GET("/export/:type", d.Admin.Export)
		admin.GET("/bots", d.Admin.ListBots)
		admin.GET("/integrations", d.Admin.ListIntegrations)
		admin.GET("/conversations", d.Admin.ListConversations)
	}

	return router
}
