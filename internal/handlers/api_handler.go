package handlers

import (
	"net/http"
	"strconv"

	"botdesk/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIHandler serves the owner-facing dashboard API.
type APIHandler struct {
	botService          services.BotService
	businessService     services.BusinessService
	settingsService     services.SettingsService
	conversationService services.ConversationService
	dashboardService    services.DashboardService
	metaAppID           string
	metaRedirectURI     string
	logger              *zap.Logger
}

type APIHandlerConfig struct {
	MetaAppID       string
	MetaRedirectURI string
}

func NewAPIHandler(
	botService services.BotService,
	businessService services.BusinessService,
	settingsService services.SettingsService,
	conversationService services.ConversationService,
	dashboardService services.DashboardService,
	cfg APIHandlerConfig,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		botService:          botService,
		businessService:     businessService,
		settingsService:     settingsService,
		conversationService: conversationService,
		dashboardService:    dashboardService,
		metaAppID:           cfg.MetaAppID,
		metaRedirectURI:     cfg.MetaRedirectURI,
		logger:              logger,
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *APIHandler) MetaConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"appId":       h.metaAppID,
		"redirectUri": h.metaRedirectURI,
	})
}

// Bot endpoints
func (h *APIHandler) ListBots(c *gin.Context) {
	bots, err := h.botService.List(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bots)
}

func (h *APIHandler) CreateBot(c *gin.Context) {
	var input services.BotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	bot, err := h.botService.Create(currentUser(c), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, bot)
}

func (h *APIHandler) UpdateBot(c *gin.Context) {
	var input services.BotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	bot, err := h.botService.Update(currentUser(c), c.Param("id"), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (h *APIHandler) DeleteBot(c *gin.Context) {
	if err := h.botService.Delete(currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bot deleted"})
}

// ToggleBot flips the bot status, or sets it when the body names one.
func (h *APIHandler) ToggleBot(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}

	bot, err := h.botService.SetStatus(currentUser(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

// Business endpoints
func (h *APIHandler) MyBusiness(c *gin.Context) {
	business, err := h.businessService.MyBusiness(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "business": business})
}

func (h *APIHandler) SaveBusinessInfo(c *gin.Context) {
	var info services.BusinessInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	business, err := h.businessService.SaveInfo(currentUser(c), info)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "business": business})
}

// User settings endpoints
func (h *APIHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *APIHandler) UpdateSettings(c *gin.Context) {
	var input services.SettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	settings, err := h.settingsService.Save(currentUser(c), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *APIHandler) ListSessions(c *gin.Context) {
	sessions, err := h.settingsService.Sessions(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *APIHandler) RevokeSession(c *gin.Context) {
	if err := h.settingsService.RevokeSession(currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session revoked"})
}

// Conversation endpoints
func (h *APIHandler) ConversationStats(c *gin.Context) {
	stats, err := h.conversationService.Stats(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandler) ConversationAnalytics(c *gin.Context) {
	res, err := h.conversationService.Analytics(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *APIHandler) ConversationsOverTime(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	buckets, err := h.conversationService.OverTime(currentUser(c), days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

func (h *APIHandler) ConversationsByBot(c *gin.Context) {
	counts, err := h.conversationService.ByBot(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *APIHandler) ListConversations(c *gin.Context) {
	threads, err := h.conversationService.List(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

func (h *APIHandler) ConversationThread(c *gin.Context) {
	thread, err := h.conversationService.Thread(currentUser(c), c.Param("businessId"), c.Param("phoneNumber"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (h *APIHandler) SaveConversation(c *gin.Context) {
	var input services.SaveConversationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conversation, err := h.conversationService.Save(currentUser(c), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, conversation)
}

// Dashboard endpoints
func (h *APIHandler) DashboardStats(c *gin.Context) {
	stats, err := h.dashboardService.Stats(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *APIHandler) DashboardActivity(c *gin.Context) {
	feed, err := h.dashboardService.Activity(currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": feed})
}
