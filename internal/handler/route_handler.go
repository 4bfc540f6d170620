package handler

import (
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// planRouteBody is the POST /api/v1/routes payload. Pointers tell a missing
// endpoint apart from (0, 0).
type planRouteBody struct {
	From   *routing.Coordinates `json:"from" binding:"required"`
	To     *routing.Coordinates `json:"to" binding:"required"`
	Metric string               `json:"metric"`
}

// RouteHandler handles HTTP requests for route planning.
type RouteHandler struct {
	service *application.RoutingService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *application.RoutingService) *RouteHandler {
	return &RouteHandler{service: service}
}

// RegisterRoutes registers all route planning routes on the given router group.
func (h *RouteHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	routes := r.Group("/api/v1/routes")
	routes.Use(authMW)
	{
		routes.GET("", h.PlanRouteQuery)
		routes.POST("", h.PlanRoute)
		routes.GET("/:id", h.GetRoutePlan)
		routes.GET("/:id/geojson", h.GetRoutePlanGeoJSON)
	}
}

// PlanRouteQuery handles GET /api/v1/routes?from=lat,lon&to=lat,lon&metric=.
func (h *RouteHandler) PlanRouteQuery(c *gin.Context) {
	from, err := routing.ParseCoordinates(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := routing.ParseCoordinates(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.plan(c, application.PlanRouteRequest{From: from, To: to, Metric: c.Query("metric")})
}

// PlanRoute handles POST /api/v1/routes.
func (h *RouteHandler) PlanRoute(c *gin.Context) {
	var body planRouteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	h.plan(c, application.PlanRouteRequest{From: *body.From, To: *body.To, Metric: body.Metric})
}

func (h *RouteHandler) plan(c *gin.Context, req application.PlanRouteRequest) {
	result, err := h.service.PlanRoute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetRoutePlan handles GET /api/v1/routes/:id.
func (h *RouteHandler) GetRoutePlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid route plan ID")
		return
	}

	result, err := h.service.GetRoutePlan(c.Request.Context(), planID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetRoutePlanGeoJSON handles GET /api/v1/routes/:id/geojson. The body is a
// bare FeatureCollection so map clients can load it directly.
func (h *RouteHandler) GetRoutePlanGeoJSON(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid route plan ID")
		return
	}

	fc, err := h.service.GetRoutePlanGeoJSON(c.Request.Context(), planID)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}
