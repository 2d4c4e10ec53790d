package apiv1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fieldwork/patternstore/store"
)

// PatternResponse is the wire representation of a full pattern document.
type PatternResponse struct {
	ID            string         `json:"id"`
	Version       string         `json:"version"`
	Title         string         `json:"title"`
	TimeFieldName string         `json:"timeFieldName,omitempty"`
	Fields        []*store.Field `json:"fields"`
}

// ProjectionResponse is the wire representation of a list-view projection.
type ProjectionResponse struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
}

// CreatePatternRequest is the construction request body.
type CreatePatternRequest struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TimeFieldName string `json:"timeFieldName"`
}

// UpdatePatternRequest is the save request body. Version is the token the
// client last observed; a stale token is rejected with 409 before any
// mutation is applied.
type UpdatePatternRequest struct {
	Title         *string `json:"title"`
	TimeFieldName *string `json:"timeFieldName"`
	Version       string  `json:"version"`
}

// UpsertFieldsRequest seeds the field catalog for a source.
type UpsertFieldsRequest struct {
	Fields []*store.Field `json:"fields"`
}

func toPatternResponse(pattern *store.Pattern) *PatternResponse {
	fields := pattern.Fields
	if fields == nil {
		fields = []*store.Field{}
	}
	return &PatternResponse{
		ID:            pattern.ID,
		Version:       pattern.Version,
		Title:         pattern.Title,
		TimeFieldName: pattern.TimeFieldName,
		Fields:        fields,
	}
}

// ListPatterns returns id/title pairs, or projections when ?fields= names an
// attribute subset. ?refresh=true forces a fresh bulk fetch.
// GET /api/v1/patterns
func (s *APIV1Service) ListPatterns(c echo.Context) error {
	ctx := c.Request().Context()
	refresh := c.QueryParam("refresh") == "true"

	if raw := c.QueryParam("fields"); raw != "" {
		fields := strings.Split(raw, ",")
		projections, err := s.Store.ListPatternFields(ctx, fields, refresh)
		if err != nil {
			return toHTTPError(err)
		}
		response := make([]*ProjectionResponse, 0, len(projections))
		for _, projection := range projections {
			response = append(response, &ProjectionResponse{ID: projection.ID, Attributes: projection.Attributes})
		}
		return c.JSON(http.StatusOK, response)
	}

	titles, err := s.Store.ListPatternTitles(ctx, refresh)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, titles)
}

// GetPattern returns the full pattern document.
// GET /api/v1/patterns/:id
func (s *APIV1Service) GetPattern(c echo.Context) error {
	pattern, err := s.Store.GetPattern(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toPatternResponse(pattern))
}

// CreatePattern constructs, discovers and persists a new pattern.
// POST /api/v1/patterns
func (s *APIV1Service) CreatePattern(c echo.Context) error {
	request := &CreatePatternRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if request.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	pattern, err := s.Store.MakePattern(c.Request().Context(), &store.MakePattern{
		ID:            request.ID,
		Title:         request.Title,
		TimeFieldName: request.TimeFieldName,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toPatternResponse(pattern))
}

// UpdatePattern applies attribute changes to the cached instance and saves
// it under the client's version token.
// PATCH /api/v1/patterns/:id
func (s *APIV1Service) UpdatePattern(c echo.Context) error {
	request := &UpdatePatternRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	ctx := c.Request().Context()
	pattern, err := s.Store.GetPattern(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	// Reject stale clients before touching the shared instance.
	if request.Version != "" && request.Version != pattern.Version {
		return toHTTPError(store.NewConflict(pattern.ID, request.Version))
	}

	if request.Title != nil {
		pattern.Title = *request.Title
	}
	if request.TimeFieldName != nil {
		pattern.TimeFieldName = *request.TimeFieldName
	}

	saved, err := s.Store.SavePattern(ctx, pattern)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toPatternResponse(saved))
}

// DeletePattern deletes the document and evicts it from the caches.
// DELETE /api/v1/patterns/:id
func (s *APIV1Service) DeletePattern(c echo.Context) error {
	if err := s.Store.DeletePattern(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpsertFields seeds the field catalog for a concrete source stream.
// POST /api/v1/fields/:source
func (s *APIV1Service) UpsertFields(c echo.Context) error {
	catalog, ok := s.Store.GetDriver().(store.FieldCatalog)
	if !ok {
		return echo.NewHTTPError(http.StatusNotImplemented, "driver has no field catalog")
	}

	request := &UpsertFieldsRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	if err := catalog.UpsertFields(c.Request().Context(), c.Param("source"), request.Fields); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
