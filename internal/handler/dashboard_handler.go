package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/service"
	"github.com/infotcjeff2-droid/properties2/internal/store"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DataHandler serves aggregate reads and whole-store maintenance
type DataHandler struct {
	store     *store.Store
	dashboard *service.DashboardService
	seedFile  string
}

func NewDataHandler(s *store.Store, dashboard *service.DashboardService, seedFile string) *DataHandler {
	return &DataHandler{store: s, dashboard: dashboard, seedFile: seedFile}
}

// Stats returns occupancy, expiring contracts, pending payments, maintenance and posting rate
func (h *DataHandler) Stats(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, ok := actorScoped(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, msgUnauthorized)
	}

	requested := c.QueryParam("companyId")
	if c.Request().Method == http.MethodPost {
		var body struct {
			CompanyID string `json:"companyId"`
		}
		if err := c.Bind(&body); err == nil && body.CompanyID != "" {
			requested = body.CompanyID
		}
	}

	stats, err := h.dashboard.Stats(c.Request().Context(), actor.Scope(requested))
	if err != nil {
		log.Error("Failed to compute stats", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "獲取統計數據失敗")
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": stats})
}

// Financial returns paid income and expense bucketed by day or month
func (h *DataHandler) Financial(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, ok := actorScoped(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, msgUnauthorized)
	}

	data, err := h.dashboard.Financial(c.Request().Context(), actor.Scope(c.QueryParam("companyId")), c.QueryParam("period"))
	if err != nil {
		log.Error("Failed to compute financial data", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "獲取財務數據失敗")
	}
	return c.JSON(http.StatusOK, data)
}

// ExpiringContracts lists ACTIVE contracts ending within ?days (default 7)
func (h *DataHandler) ExpiringContracts(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, _ := actorOf(c)

	window := store.ExpiringWindow
	if raw := c.QueryParam("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return errorJSON(c, http.StatusBadRequest, msgInvalidRequest)
		}
		window = time.Duration(days) * 24 * time.Hour
	}

	contracts, err := h.dashboard.ExpiringContracts(c.Request().Context(), actor.Scope(c.QueryParam("companyId")), window)
	if err != nil {
		log.Error("Failed to list expiring contracts", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "獲取數據失敗")
	}
	return c.JSON(http.StatusOK, contracts)
}

// ClearProperties empties the property-related collections. A super admin clears
// every company and blocks future sample data; a company admin clears only
// their own company's records.
func (h *DataHandler) ClearProperties(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, ok := actorScoped(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, msgUnauthorized)
	}

	if actor.IsSuperAdmin() {
		if err := h.store.ClearAll(c.Request().Context()); err != nil {
			log.Error("Failed to clear property data", zap.Error(err))
			return errorJSON(c, http.StatusInternalServerError, "清除數據失敗")
		}
		log.Info("Property data cleared", zap.String("user_id", actor.UserID))
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}

	companyID := actor.Scope("")
	if companyID == "" {
		return errorJSON(c, http.StatusBadRequest, service.ErrNoCompany.Error())
	}
	removed, err := h.store.ClearCompany(c.Request().Context(), companyID)
	if err != nil {
		log.Error("Failed to clear company property data", zap.String("company_id", companyID), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "清除數據失敗")
	}
	log.Info("Company property data cleared",
		zap.String("user_id", actor.UserID),
		zap.String("company_id", companyID),
		zap.Int("removed", removed))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "removed": removed})
}

// InitData loads the sample data unless the user has cleared the store
func (h *DataHandler) InitData(c echo.Context) error {
	log := logger.FromEcho(c)

	data, err := store.LoadSeedFile(h.seedFile)
	if err != nil {
		log.Error("Failed to read sample data", zap.String("file", h.seedFile), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": err.Error()})
	}

	err = h.store.Seed(c.Request().Context(), data)
	if errors.Is(err, store.ErrSeedSuppressed) {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "數據已被用戶清除，不會重新載入示範數據"})
	}
	if err != nil {
		log.Error("Failed to seed sample data", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": err.Error()})
	}

	log.Info("Sample data loaded")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "示範數據已初始化"})
}
