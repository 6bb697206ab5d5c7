package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"botdesk/internal/models"
	"botdesk/internal/repository"
	"botdesk/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	adminService *services.AdminService
	logger       *zap.Logger
}

func NewAdminHandler(adminService *services.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{adminService: adminService, logger: logger}
}

func (h *AdminHandler) Overview(c *gin.Context) {
	c.JSON(http.StatusOK, h.adminService.Overview())
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := h.adminService.ListUsers(listFilter(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	detail, err := h.adminService.UserDetail(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if c.Param("id") == currentUser(c) && req.Status == models.UserSuspended {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot suspend your own account"})
		return
	}

	user, err := h.adminService.UpdateUserStatus(c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AdminHandler) ListBusinesses(c *gin.Context) {
	page, err := h.adminService.ListBusinesses(listFilter(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *AdminHandler) Analytics(c *gin.Context) {
	res, err := h.adminService.Analytics(c.Query("period"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.adminService.Health())
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.adminService.Settings())
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var settings models.PlatformSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	saved, err := h.adminService.SaveSettings(settings)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *AdminHandler) ListBackups(c *gin.Context) {
	list, err := h.adminService.ListBackups()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) CreateBackup(c *gin.Context) {
	var input services.CreateBackupInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
	}

	backup, err := h.adminService.CreateBackup(currentUser(c), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, backup)
}

func (h *AdminHandler) DownloadBackup(c *gin.Context) {
	backup, err := h.adminService.GetBackup(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, backup.Name))
	c.Status(http.StatusOK)
	if err := h.adminService.WriteExport(c.Writer, backup); err != nil {
		h.logger.Error("Backup download interrupted", zap.String("backup_id", backup.ID), zap.Error(err))
	}
}

func (h *AdminHandler) Export(c *gin.Context) {
	kind := c.Param("type")
	if !services.IsExportType(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown export type"})
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", kind, time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if err := h.adminService.ExportCSV(c.Writer, kind); err != nil {
		h.logger.Error("Export interrupted", zap.String("type", kind), zap.Error(err))
	}
}

func (h *AdminHandler) ListBots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bots": h.adminService.ListBots()})
}

func (h *AdminHandler) ListIntegrations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"integrations": h.adminService.ListIntegrations()})
}

func (h *AdminHandler) ListConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	c.JSON(http.StatusOK, gin.H{"conversations": h.adminService.ListConversations(limit)})
}

func listFilter(c *gin.Context) repository.ListFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return repository.ListFilter{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
		Status: c.Query("status"),
	}
}
