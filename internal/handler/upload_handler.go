package handler

import (
	"net/http"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/upload"
	"github.com/infotcjeff2-droid/properties2/pkg/logger"
	"github.com/infotcjeff2-droid/properties2/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const msgUnsupportedType = "不支持的文件格式。請上傳 JPG, PNG, SVG 或 WEBP 格式的圖片。"

type UploadHandler struct {
	store    upload.Store
	maxBytes int64
	metrics  *prometheus.Metrics
	now      func() time.Time
}

func NewUploadHandler(s upload.Store, maxBytes int64, m *prometheus.Metrics) *UploadHandler {
	return &UploadHandler{store: s, maxBytes: maxBytes, metrics: m, now: time.Now}
}

// Upload stores the multipart "file" field under a generated name
func (h *UploadHandler) Upload(c echo.Context) error {
	log := logger.FromEcho(c)

	fh, err := c.FormFile("file")
	if err != nil {
		log.Warn("Upload without file", zap.Error(err))
		return errorJSON(c, http.StatusBadRequest, "沒有上傳文件")
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	if !upload.Allowed(contentType) {
		log.Warn("Rejected upload type", zap.String("content_type", contentType))
		return errorJSON(c, http.StatusBadRequest, msgUnsupportedType)
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return errorJSON(c, http.StatusBadRequest, "文件過大")
	}

	kind := c.FormValue("type")
	name := upload.FileName(kind, contentType, h.now())

	src, err := fh.Open()
	if err != nil {
		log.Error("Failed to open upload", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "文件上傳失敗: "+err.Error())
	}
	defer src.Close()

	obj, err := h.store.Put(c.Request().Context(), name, src, contentType)
	if err != nil {
		log.Error("Failed to store upload", zap.String("file_name", name), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "文件上傳失敗: "+err.Error())
	}

	h.metrics.RecordUpload(obj.Size)
	log.Info("File uploaded",
		zap.String("file_name", name),
		zap.Int64("size", obj.Size),
		zap.String("driver", h.store.Driver()))
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"url":      obj.URL,
		"fileName": name,
		"size":     obj.Size,
		"type":     contentType,
	})
}
