package handler

import (
	"net/http"

	"github.com/infotcjeff2-droid/properties2/internal/service"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, _ := actorOf(c)

	users, err := h.users.List(c.Request().Context(), actor)
	if err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return serviceError(c, err, "獲取用戶列表失敗")
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, _ := actorOf(c)

	var req service.NewUserRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid user request", zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, service.ErrMissingUserFields.Error())
	}

	user, err := h.users.Create(c.Request().Context(), actor, req)
	if err != nil {
		log.Warn("User not created", zap.String("email", req.Email), zap.Error(err))
		return serviceError(c, err, "創建用戶失敗")
	}

	log.Info("User created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("created_by", actor.UserID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

type CompanyHandler struct {
	companies *service.CompanyService
}

func NewCompanyHandler(companies *service.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

func (h *CompanyHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)

	companies, err := h.companies.List(c.Request().Context())
	if err != nil {
		log.Error("Failed to list companies", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "獲取公司列表失敗")
	}
	return c.JSON(http.StatusOK, echo.Map{"companies": companies})
}

func (h *CompanyHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req service.NewCompanyRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid company request", zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, service.ErrCompanyNameRequired.Error())
	}

	company, err := h.companies.Create(c.Request().Context(), req)
	if err != nil {
		log.Warn("Company not created", zap.String("name", req.Name), zap.Error(err))
		return serviceError(c, err, "創建公司失敗")
	}

	log.Info("Company created", zap.String("company_id", company.ID), zap.String("name", company.Name))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "company": company})
}
