package handler

import (
	"log/slog"
	"net/http"

	"quill/internal/httputil"
	"quill/internal/modelcat"
)

// ModelsHandler serves the completion model catalog for the selector UI
type ModelsHandler struct {
	registry *modelcat.Registry
	logger   *slog.Logger
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(registry *modelcat.Registry, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{
		registry: registry,
		logger:   logger,
	}
}

// ListModels returns the selectable models as label/value options
// GET /api/models
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"model_options": h.registry.Options(),
	})
}
