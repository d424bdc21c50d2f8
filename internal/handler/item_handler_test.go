package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"factorymes/internal/database"
	"factorymes/internal/handler"
	"factorymes/internal/middleware"
	"factorymes/internal/repository"
	"factorymes/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	txManager := repository.NewTransactionManager(db)
	itemRepo := repository.NewItemRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	ledger := service.NewLedgerService(itemRepo, movementRepo, auditRepo, txManager, nil, logger)
	items := service.NewItemService(itemRepo, auditRepo, txManager)

	router := gin.New()
	api := router.Group("/api/v1")
	handler.NewItemHandler(items, ledger).RegisterRoutes(api)
	return router
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "11111111-1111-1111-1111-111111111111",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestItemEndpoints_CreateThenGet(t *testing.T) {
	router := newRouter(t)
	token := adminToken(t)

	body := `{"code":"BOLT-M8","name":"Hex bolt M8","unit":"pcs","safety_stock":20,"unit_price":"0.50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("POST /items status = %d, body %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/items/BOLT-M8", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /items/BOLT-M8 status = %d, body %s", w.Code, w.Body.String())
	}
	var envelope struct {
		Data service.ItemResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Code != "BOLT-M8" || envelope.Data.UnitPrice != "0.5" {
		t.Errorf("item = %s @ %s, want BOLT-M8 @ 0.5", envelope.Data.Code, envelope.Data.UnitPrice)
	}
	if envelope.Data.CurrentStock != 0 {
		t.Errorf("current stock = %d, want 0 on a fresh item", envelope.Data.CurrentStock)
	}
}

func TestItemEndpoints_AuthRequired(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated GET /items status = %d, want 401", w.Code)
	}

	// A valid token with the wrong role is rejected too.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "22222222-2222-2222-2222-222222222222",
		"role": "qc",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/items", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+signed)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("qc POST /items status = %d, want 403", w.Code)
	}
}
