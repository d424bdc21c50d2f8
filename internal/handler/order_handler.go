package handler

import (
	"net/http"

	"factorymes/internal/middleware"
	"factorymes/internal/service"
	"factorymes/pkg/pagination"
	"factorymes/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.GET("", middleware.RequireRole("admin", "purchasing", "warehouse", "qc"), h.ListOrders)
		orders.POST("", middleware.RequireRole("admin", "purchasing"), h.CreateOrder)
		orders.GET("/:order_no", middleware.RequireRole("admin", "purchasing", "warehouse", "qc"), h.GetOrder)
		orders.POST("/:order_no/transitions", middleware.RequireRole("admin", "purchasing"), h.Transition)
		orders.GET("/:order_no/schedule", middleware.RequireRole("admin", "purchasing", "warehouse"), h.ListSchedule)
	}
}

// TransitionRequest names the lifecycle event to apply to an order.
type TransitionRequest struct {
	Event string `json:"event" binding:"required,oneof=submit approve begin_receiving close cancel"`
}

// CreateOrder handles POST /orders
// @Summary      Create a purchase order
// @Description  Creates a draft order with its lines. Line prices are fixed at creation time.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrderRequest  true  "Create Order Payload"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	// An Idempotency-Key header takes precedence over the body field.
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// Transition handles POST /orders/:order_no/transitions
// @Summary      Apply a lifecycle event to an order
// @Description  Moves the order through its state machine: submit, approve, begin_receiving, close, cancel
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        order_no  path      string                    true  "Order Number"
// @Param        payload   body      handler.TransitionRequest  true  "Transition Payload"
// @Success      200       {object}  response.Response{data=service.OrderResponse}
// @Failure      400       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Failure      409       {object}  response.Response
// @Router       /orders/{order_no}/transitions [post]
func (h *OrderHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.Transition(c.Request.Context(), actorID(c), c.Param("order_no"), req.Event)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// GetOrder handles GET /orders/:order_no
// @Summary      Get order by number
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        order_no  path      string  true  "Order Number"
// @Success      200       {object}  response.Response{data=service.OrderResponse}
// @Failure      404       {object}  response.Response
// @Router       /orders/{order_no} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ListOrders handles GET /orders
// @Summary      List purchase orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 10)"
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), p.Page, p.Limit, c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   p.Page,
		"limit":  p.Limit,
	}))
}

// ListSchedule handles GET /orders/:order_no/schedule
// @Summary      List receiving schedule for an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        order_no  path      string  true  "Order Number"
// @Success      200       {object}  response.Response{data=[]service.ScheduleEntryResponse}
// @Failure      404       {object}  response.Response
// @Router       /orders/{order_no}/schedule [get]
func (h *OrderHandler) ListSchedule(c *gin.Context) {
	entries, err := h.orderService.ListSchedule(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}
