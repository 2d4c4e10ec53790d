// Package apiv1 exposes the pattern store over a small REST surface.
package apiv1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldwork/patternstore/internal/profile"
	"github.com/fieldwork/patternstore/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Store:   store,
	}
}

// Register wires the v1 routes onto the given Echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")

	group.GET("/patterns", s.ListPatterns)
	group.POST("/patterns", s.CreatePattern)
	group.GET("/patterns/:id", s.GetPattern)
	group.PATCH("/patterns/:id", s.UpdatePattern)
	group.DELETE("/patterns/:id", s.DeletePattern)
	group.POST("/fields/:source", s.UpsertFields)
}

// toHTTPError maps store errors onto their HTTP status.
func toHTTPError(err error) error {
	if storeErr, ok := store.AsStoreError(err); ok {
		body := map[string]any{
			"code":    storeErr.Code,
			"status":  storeErr.Status,
			"message": storeErr.Message,
		}
		if storeErr.ID != "" {
			body["id"] = storeErr.ID
		}
		if storeErr.Version != "" {
			body["version"] = storeErr.Version
		}
		return echo.NewHTTPError(storeErr.Status, body)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
