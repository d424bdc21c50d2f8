package handler

import (
	"fmt"
	"net/http"
	"time"

	"factorymes/internal/middleware"
	"factorymes/internal/service"
	"factorymes/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// exportRowLimit caps a single export so one request cannot buffer an
// unbounded ledger in memory.
const exportRowLimit = 10000

type ExportHandler struct {
	ledgerService service.LedgerService
}

func NewExportHandler(ledgerService service.LedgerService) *ExportHandler {
	return &ExportHandler{ledgerService: ledgerService}
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/items/:code/movements/export", middleware.RequireRole("admin", "purchasing", "warehouse"), h.ExportMovements)
}

// ExportMovements handles GET /items/:code/movements/export
// @Summary      Export an item's movement history as xlsx
// @Tags         ledger
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        code  path  string  true  "Item Code"
// @Success      200   {file}  binary
// @Failure      404   {object}  response.Response
// @Router       /items/{code}/movements/export [get]
func (h *ExportHandler) ExportMovements(c *gin.Context) {
	code := c.Param("code")

	movements, _, err := h.ledgerService.ListMovements(c.Request.Context(), code, 1, exportRowLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Movements"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Item Code", "Kind", "Quantity", "Warehouse", "Stock After", "Ref Order", "Created At"}
	for i, hdr := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hdr)
	}

	for i, mv := range movements {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), mv.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), mv.ItemCode)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), mv.Kind)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), mv.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), mv.Warehouse)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), mv.StockAfter)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), mv.RefOrderNo)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), mv.CreatedAt)
	}

	filename := fmt.Sprintf("movements_%s_%s.xlsx", code, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to write export"))
		return
	}
}
