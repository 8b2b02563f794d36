package http

import (
	"net/http"
	"strconv"

	"shopflow/internal/core/domain"
	"shopflow/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	metrics   ports.MetricsReader
	directory ports.Directory
}

func NewDashboardHandler(metrics ports.MetricsReader, directory ports.Directory) *DashboardHandler {
	return &DashboardHandler{
		metrics:   metrics,
		directory: directory,
	}
}

func (h *DashboardHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/dashboard/snapshot", h.GetSnapshot)
		api.GET("/dashboard/flow", h.GetFlow)
		api.GET("/dashboard/cameras", h.GetCameras)
		api.GET("/dashboard/notifications", h.GetNotifications)
		api.GET("/dashboard/connection", h.GetConnection)

		api.GET("/employees", h.ListEmployees)
		api.GET("/employees/:id", h.GetEmployee)
		api.POST("/employees", h.CreateEmployee)
		api.PUT("/employees/:id", h.UpdateEmployee)
		api.DELETE("/employees/:id", h.DeleteEmployee)

		api.GET("/users", h.ListUsers)

		api.GET("/privacy", h.GetPrivacy)
		api.PUT("/privacy", h.UpdatePrivacy)
	}
}

// GetSnapshot returns the full render-ready dashboard state in one call.
func (h *DashboardHandler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics":    h.metrics.Metrics(),
		"sparkline":  h.metrics.Sparkline(),
		"is_live":    h.metrics.IsLive(),
		"connection": h.metrics.Connection(),
	})
}

func (h *DashboardHandler) GetFlow(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"flow": h.metrics.Flow(),
	})
}

func (h *DashboardHandler) GetCameras(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cameras": h.metrics.Cameras(),
	})
}

func (h *DashboardHandler) GetNotifications(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": h.metrics.Notifications(limit),
	})
}

func (h *DashboardHandler) GetConnection(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Connection())
}

func (h *DashboardHandler) ListEmployees(c *gin.Context) {
	employees, err := h.directory.Employees(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": employees})
}

func (h *DashboardHandler) GetEmployee(c *gin.Context) {
	e, err := h.directory.Employee(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *DashboardHandler) CreateEmployee(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required,min=2,max=100"`
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.directory.SaveEmployee(c.Request.Context(), &domain.Employee{
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
		Active: true,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *DashboardHandler) UpdateEmployee(c *gin.Context) {
	var e domain.Employee
	if err := c.BindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e.ID = c.Param("id")

	updated, err := h.directory.SaveEmployee(c.Request.Context(), &e)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *DashboardHandler) DeleteEmployee(c *gin.Context) {
	if err := h.directory.RemoveEmployee(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DashboardHandler) ListUsers(c *gin.Context) {
	users, err := h.directory.Users(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *DashboardHandler) GetPrivacy(c *gin.Context) {
	settings, err := h.directory.Privacy(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *DashboardHandler) UpdatePrivacy(c *gin.Context) {
	var s domain.PrivacySettings
	if err := c.BindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.directory.UpdatePrivacy(c.Request.Context(), &s); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s)
}
