package handler

import (
	"net/http"

	"factorymes/internal/middleware"
	"factorymes/internal/service"
	"factorymes/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReceivingHandler struct {
	receivingService service.ReceivingService
}

func NewReceivingHandler(receivingService service.ReceivingService) *ReceivingHandler {
	return &ReceivingHandler{receivingService: receivingService}
}

func (h *ReceivingHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/receipts", middleware.RequireRole("admin", "warehouse", "qc"), h.RecordReceipt)
	router.GET("/orders/:order_no/inspections", middleware.RequireRole("admin", "purchasing", "warehouse", "qc"), h.ListInspections)
}

// RecordReceipt handles POST /receipts
// @Summary      Record an inspected receipt
// @Description  Records one delivery against an order line: inspection record, line progress, schedule update and stock posting commit together or not at all
// @Tags         receiving
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RecordReceiptRequest  true  "Receipt Payload"
// @Success      201      {object}  response.Response{data=service.ReceiptResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /receipts [post]
func (h *ReceivingHandler) RecordReceipt(c *gin.Context) {
	var req service.RecordReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.receivingService.RecordReceipt(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListInspections handles GET /orders/:order_no/inspections
// @Summary      List inspection records for an order
// @Tags         receiving
// @Produce      json
// @Security     BearerAuth
// @Param        order_no  path      string  true  "Order Number"
// @Success      200       {object}  response.Response{data=[]service.InspectionResponse}
// @Failure      404       {object}  response.Response
// @Router       /orders/{order_no}/inspections [get]
func (h *ReceivingHandler) ListInspections(c *gin.Context) {
	records, err := h.receivingService.ListInspections(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, records))
}
