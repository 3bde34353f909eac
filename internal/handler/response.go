package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/infotcjeff2-droid/properties2/internal/middleware"
	"github.com/infotcjeff2-droid/properties2/internal/service"
	"github.com/labstack/echo/v4"
)

const (
	msgUnauthorized   = "未授權"
	msgInvalidRequest = "無效的請求"
	msgNotFound       = "記錄不存在"
)

var errEmptyBody = errors.New("empty body")

// readObject decodes a JSON object body keeping numbers exact
func readObject(c echo.Context) (map[string]any, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmptyBody
		}
		return nil, err
	}
	if body == nil {
		return nil, errEmptyBody
	}
	return body, nil
}

// actorOf returns the caller set by the auth gate
func actorOf(c echo.Context) (service.Actor, bool) {
	return middleware.CurrentActor(c)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// serviceError maps service sentinels to status codes; anything else is a 500 with fallback
func serviceError(c echo.Context, err error, fallback string) error {
	switch {
	case service.IsValidation(err):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case service.IsForbidden(err):
		return errorJSON(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return errorJSON(c, http.StatusUnauthorized, err.Error())
	default:
		return errorJSON(c, http.StatusInternalServerError, fallback)
	}
}
