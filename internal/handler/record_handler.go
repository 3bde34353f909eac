package handler

import (
	"errors"
	"net/http"

	"github.com/infotcjeff2-droid/properties2/internal/service"
	"github.com/infotcjeff2-droid/properties2/internal/store"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RecordHandler serves CRUD for one collection. Callers bound to a company
// only see, create and change records of that company.
type RecordHandler[T store.Record] struct {
	coll *store.Collection[T]
}

func NewRecordHandler[T store.Record](coll *store.Collection[T]) *RecordHandler[T] {
	return &RecordHandler[T]{coll: coll}
}

// Register mounts the collection routes on g
func (h *RecordHandler[T]) Register(g *echo.Group, write ...echo.MiddlewareFunc) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, write...)
	g.PATCH("/:id", h.Update, write...)
	g.PUT("/:id", h.Update, write...)
	g.DELETE("/:id", h.Delete, write...)
}

func (h *RecordHandler[T]) List(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, _ := actorOf(c)

	docs, err := h.coll.Documents(c.Request().Context(), actor.Scope(c.QueryParam("companyId")))
	if err != nil {
		log.Error("Failed to list records", zap.String("collection", h.coll.Name()), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "獲取數據失敗")
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *RecordHandler[T]) Get(c echo.Context) error {
	doc, err := h.visible(c, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *RecordHandler[T]) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, _ := actorOf(c)
	ctx := c.Request().Context()

	body, err := readObject(c)
	if err != nil {
		log.Warn("Invalid record body", zap.String("collection", h.coll.Name()), zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, msgInvalidRequest)
	}
	if scope := actor.Scope(""); scope != "" {
		body["companyId"] = scope
	}

	created, err := h.coll.Insert(ctx, body)
	if err != nil {
		return h.fail(c, err)
	}
	doc, err := h.coll.Document(ctx, created.RecordID())
	if err != nil {
		return h.fail(c, err)
	}

	log.Info("Record created", zap.String("collection", h.coll.Name()), zap.String("id", created.RecordID()))
	return c.JSON(http.StatusCreated, doc)
}

func (h *RecordHandler[T]) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	actor, _ := actorOf(c)
	ctx := c.Request().Context()

	current, err := h.visible(c, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	patch, err := readObject(c)
	if err != nil {
		log.Warn("Invalid patch body", zap.String("collection", h.coll.Name()), zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, msgInvalidRequest)
	}
	if actor.Scope("") != "" {
		delete(patch, "companyId")
	}

	id, _ := current["id"].(string)
	if _, err := h.coll.Update(ctx, id, patch); err != nil {
		return h.fail(c, err)
	}
	doc, err := h.coll.Document(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}

	log.Info("Record updated", zap.String("collection", h.coll.Name()), zap.String("id", id))
	return c.JSON(http.StatusOK, doc)
}

func (h *RecordHandler[T]) Delete(c echo.Context) error {
	log := logger.FromEcho(c)

	current, err := h.visible(c, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	id, _ := current["id"].(string)
	removed, err := h.coll.Delete(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if !removed {
		return errorJSON(c, http.StatusNotFound, msgNotFound)
	}

	log.Info("Record deleted", zap.String("collection", h.coll.Name()), zap.String("id", id))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// visible resolves ref and hides records owned by another company
func (h *RecordHandler[T]) visible(c echo.Context, ref string) (store.Document, error) {
	actor, _ := actorOf(c)
	doc, err := h.coll.Document(c.Request().Context(), ref)
	if err != nil {
		return nil, err
	}
	owner, _ := doc["companyId"].(string)
	if !actor.CanAccess(owner) {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (h *RecordHandler[T]) fail(c echo.Context, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, msgNotFound)
	}
	if errors.Is(err, store.ErrInvalidRecord) {
		logger.FromEcho(c).Warn("Rejected record", zap.String("collection", h.coll.Name()), zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, msgInvalidRequest)
	}
	logger.FromEcho(c).Error("Record operation failed", zap.String("collection", h.coll.Name()), zap.Error(err))
	return serviceError(c, err, "操作失敗")
}

// actorScoped is a small guard for handlers that need a signed-in, non-guest caller
func actorScoped(c echo.Context) (service.Actor, bool) {
	actor, ok := actorOf(c)
	return actor, ok && !actor.Guest
}
