package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/roadnetwork"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/response"
)

// AdminHandler handles admin HTTP requests for route plans and road data.
type AdminHandler struct {
	routes  *application.RoutingService
	network *application.NetworkService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(routes *application.RoutingService, network *application.NetworkService) *AdminHandler {
	return &AdminHandler{routes: routes, network: network}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.POST("/network/import", h.ImportNetwork)
		admin.GET("/network/stats", h.NetworkStats)
		admin.GET("/routes", h.ListRoutes)
		admin.GET("/stats/routes", h.RouteStats)
	}
}

// ImportNetwork handles POST /api/v1/admin/network/import.
func (h *AdminHandler) ImportNetwork(c *gin.Context) {
	var network roadnetwork.RoadNetwork
	if err := c.ShouldBindJSON(&network); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.network.ImportNetwork(c.Request.Context(), &network)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// NetworkStats handles GET /api/v1/admin/network/stats.
func (h *AdminHandler) NetworkStats(c *gin.Context) {
	stats, err := h.network.GetNetworkStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// ListRoutes handles GET /api/v1/admin/routes.
func (h *AdminHandler) ListRoutes(c *gin.Context) {
	page, limit := parsePagination(c)

	plans, total, err := h.routes.ListRoutePlans(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, plans, total, page, limit)
}

// RouteStats handles GET /api/v1/admin/stats/routes.
func (h *AdminHandler) RouteStats(c *gin.Context) {
	stats, err := h.routes.GetRouteStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
