package handler

import (
	"net/http"

	"factorymes/internal/middleware"
	"factorymes/internal/service"
	"factorymes/pkg/pagination"
	"factorymes/pkg/response"

	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	itemService   service.ItemService
	ledgerService service.LedgerService
}

// NewItemHandler sets up the routing dependencies for item master and ledger endpoints
func NewItemHandler(itemService service.ItemService, ledgerService service.LedgerService) *ItemHandler {
	return &ItemHandler{itemService: itemService, ledgerService: ledgerService}
}

// RegisterRoutes binds the endpoints to the gin RouterGroup
func (h *ItemHandler) RegisterRoutes(router *gin.RouterGroup) {
	items := router.Group("/items")
	{
		items.GET("", middleware.RequireRole("admin", "purchasing", "warehouse", "qc"), h.ListItems)
		items.POST("", middleware.RequireRole("admin", "purchasing"), h.CreateItem)
		items.GET("/:code", middleware.RequireRole("admin", "purchasing", "warehouse", "qc"), h.GetItem)
		items.PUT("/:code", middleware.RequireRole("admin", "purchasing"), h.UpdateItem)
		items.GET("/:code/stock", middleware.RequireRole("admin", "purchasing", "warehouse", "qc"), h.GetStock)
		items.GET("/:code/movements", middleware.RequireRole("admin", "purchasing", "warehouse"), h.ListMovements)
		items.POST("/:code/reconcile", middleware.RequireRole("admin"), h.Reconcile)
	}
	router.POST("/movements", middleware.RequireRole("admin", "warehouse"), h.PostMovement)
}

// CreateItem handles POST /items
// @Summary      Create a new item
// @Description  Registers an item in the item master with its safety stock level
// @Tags         items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateItemRequest  true  "Create Item Payload"
// @Success      201      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /items [post]
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.itemService.CreateItem(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// UpdateItem handles PUT /items/:code
// @Summary      Update an item
// @Description  Updates item master fields. Stock cannot be edited here; use movements.
// @Tags         items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        code     path      string                     true  "Item Code"
// @Param        payload  body      service.UpdateItemRequest  true  "Update Item Payload"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /items/{code} [put]
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.itemService.UpdateItem(c.Request.Context(), actorID(c), c.Param("code"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// GetItem handles GET /items/:code
// @Summary      Get item by code
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Item Code"
// @Success      200   {object}  response.Response{data=service.ItemResponse}
// @Failure      404   {object}  response.Response
// @Router       /items/{code} [get]
func (h *ItemHandler) GetItem(c *gin.Context) {
	item, err := h.itemService.GetItem(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListItems handles GET /items
// @Summary      List items
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 10)"
// @Param        search  query     string  false  "Search by code or name"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /items [get]
func (h *ItemHandler) ListItems(c *gin.Context) {
	p := pagination.Parse(c)

	items, total, err := h.itemService.ListItems(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}

// GetStock handles GET /items/:code/stock
// @Summary      Get current stock
// @Description  Returns the cached on-hand quantity for an item
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Item Code"
// @Success      200   {object}  response.Response{data=object}
// @Failure      404   {object}  response.Response
// @Router       /items/{code}/stock [get]
func (h *ItemHandler) GetStock(c *gin.Context) {
	code := c.Param("code")
	stock, err := h.ledgerService.CurrentStock(c.Request.Context(), code)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"item_code":     code,
		"current_stock": stock,
	}))
}

// PostMovement handles POST /movements
// @Summary      Post a stock movement
// @Description  Appends a signed in/out/adjust movement to the item ledger and updates cached stock
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.PostMovementRequest  true  "Movement Payload"
// @Success      201      {object}  response.Response{data=service.MovementResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /movements [post]
func (h *ItemHandler) PostMovement(c *gin.Context) {
	var req service.PostMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	// The order linkage is set internally by the receiving flow, never by API callers.
	req.Origin = nil

	mv, err := h.ledgerService.PostMovement(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, mv))
}

// ListMovements handles GET /items/:code/movements
// @Summary      List stock movements for an item
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        code   path      string  true   "Item Code"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 10)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      404    {object}  response.Response
// @Router       /items/{code}/movements [get]
func (h *ItemHandler) ListMovements(c *gin.Context) {
	p := pagination.Parse(c)

	movements, total, err := h.ledgerService.ListMovements(c.Request.Context(), c.Param("code"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      p.Page,
		"limit":     p.Limit,
	}))
}

// Reconcile handles POST /items/:code/reconcile
// @Summary      Reconcile cached stock
// @Description  Recomputes on-hand stock from the movement history and corrects drift
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Item Code"
// @Success      200   {object}  response.Response{data=service.ReconcileResult}
// @Failure      404   {object}  response.Response
// @Router       /items/{code}/reconcile [post]
func (h *ItemHandler) Reconcile(c *gin.Context) {
	result, err := h.ledgerService.Reconcile(c.Request.Context(), actorID(c), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
