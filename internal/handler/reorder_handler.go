package handler

import (
	"net/http"
	"strconv"

	"factorymes/internal/middleware"
	"factorymes/internal/service"
	"factorymes/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReorderHandler struct {
	reorderService service.ReorderService
}

func NewReorderHandler(reorderService service.ReorderService) *ReorderHandler {
	return &ReorderHandler{reorderService: reorderService}
}

func (h *ReorderHandler) RegisterRoutes(router *gin.RouterGroup) {
	reorder := router.Group("/reorder")
	{
		reorder.GET("/rules", middleware.RequireRole("admin", "purchasing"), h.ListRules)
		reorder.POST("/rules", middleware.RequireRole("admin", "purchasing"), h.CreateRule)
		reorder.GET("/proposals", middleware.RequireRole("admin", "purchasing"), h.Evaluate)
		reorder.POST("/run", middleware.RequireRole("admin"), h.Run)
	}
}

// CreateRule handles POST /reorder/rules
// @Summary      Create an auto-reorder rule
// @Tags         reorder
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRuleRequest  true  "Create Rule Payload"
// @Success      201      {object}  response.Response{data=service.RuleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /reorder/rules [post]
func (h *ReorderHandler) CreateRule(c *gin.Context) {
	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.reorderService.CreateRule(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// ListRules handles GET /reorder/rules
// @Summary      List auto-reorder rules
// @Tags         reorder
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 10)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /reorder/rules [get]
func (h *ReorderHandler) ListRules(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rules, total, err := h.reorderService.ListRules(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"rules": rules,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}

// Evaluate handles GET /reorder/proposals
// @Summary      Evaluate reorder rules
// @Description  Dry run: returns the orders the evaluator would propose without creating anything
// @Tags         reorder
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ReorderProposal}
// @Failure      500  {object}  response.Response
// @Router       /reorder/proposals [get]
func (h *ReorderHandler) Evaluate(c *gin.Context) {
	proposals, err := h.reorderService.Evaluate(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, proposals))
}

// Run handles POST /reorder/run
// @Summary      Run the reorder scan now
// @Description  Evaluates all active rules and creates one draft order per triggered rule. Safe to repeat within a day.
// @Tags         reorder
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.OrderResponse}
// @Failure      500  {object}  response.Response
// @Router       /reorder/run [post]
func (h *ReorderHandler) Run(c *gin.Context) {
	orders, err := h.reorderService.RunOnce(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, orders))
}
