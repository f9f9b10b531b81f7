package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"servicecheck/features/catalog/archive"
	"servicecheck/features/web/handlers/response"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SnapshotReader loads the archived catalog of a provider.
type SnapshotReader interface {
	Get(ctx context.Context, providerID int64) (*archive.Snapshot, error)
}

type CatalogInput struct {
	ProviderID int64 `param:"providerID" validate:"required,min=1"`
}

type CatalogPayload struct {
	ProviderID   int64     `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	RunID        string    `json:"run_id,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	Size         int       `json:"size"`
	// Catalog is the body as returned by the provider; a body that is not
	// JSON is returned as a string.
	Catalog any `json:"catalog"`
}

func NewCatalogPayload(s *archive.Snapshot) CatalogPayload {
	payload := CatalogPayload{
		ProviderID:   s.ProviderID,
		ProviderName: s.ProviderName,
		RunID:        s.RunID,
		FetchedAt:    s.FetchedAt,
		Size:         len(s.Body),
	}
	if json.Valid(s.Body) {
		payload.Catalog = json.RawMessage(s.Body)
	} else {
		payload.Catalog = string(s.Body)
	}
	return payload
}

type CatalogHandler struct {
	archive SnapshotReader
}

func NewCatalogHandler(reader SnapshotReader) *CatalogHandler {
	return &CatalogHandler{archive: reader}
}

func (h *CatalogHandler) GetCatalog(c echo.Context) error {
	req := &CatalogInput{}
	if err := c.Bind(req); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if h.archive == nil {
		return response.NotFound(c, "catalog archive is disabled", c.Param("providerID"))
	}

	snapshot, err := h.archive.Get(c.Request().Context(), req.ProviderID)
	if errors.Is(err, archive.ErrSnapshotNotFound) {
		return response.NotFound(c, err.Error(), c.Param("providerID"))
	}
	if err != nil {
		log.Error().Err(err).Int64("provider_id", req.ProviderID).Msg("Failed to read archived catalog")
		return response.Error(c, http.StatusInternalServerError, err.Error())
	}

	return response.Success(c, NewCatalogPayload(snapshot))
}

func MapCatalogRoutes(e *echo.Echo, reader SnapshotReader) {
	handler := NewCatalogHandler(reader)
	e.GET("/providers/:providerID/catalog", handler.GetCatalog)
	log.Info().Msg("Catalog route mapped at /providers/:providerID/catalog")
}
