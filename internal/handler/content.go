package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/faresearch/internal/content"
	"github.com/dharmasatrya/faresearch/internal/models"
)

type ContentHandler struct {
	client *content.Client
}

func NewContentHandler(client *content.Client) *ContentHandler {
	return &ContentHandler{client: client}
}

func (h *ContentHandler) Airport(c echo.Context) error {
	airport, err := h.client.Airport(c.Request().Context(), lookup(c))
	if err != nil {
		return contentError(c, "airport", err)
	}
	return c.JSON(http.StatusOK, airport)
}

func (h *ContentHandler) Airline(c echo.Context) error {
	airline, err := h.client.Airline(c.Request().Context(), lookup(c))
	if err != nil {
		return contentError(c, "airline", err)
	}
	return c.JSON(http.StatusOK, airline)
}

func (h *ContentHandler) Layout(c echo.Context) error {
	layout, err := h.client.Layout(c.Request().Context(), lookup(c))
	if err != nil {
		return contentError(c, "layout", err)
	}
	return c.JSON(http.StatusOK, layout)
}

func lookup(c echo.Context) content.Lookup {
	return content.Lookup{
		Code:     c.Param("code"),
		Language: c.QueryParam("lang"),
		Domain:   c.QueryParam("domain"),
	}
}

func contentError(c echo.Context, what string, err error) error {
	if errors.Is(err, content.ErrNotFound) {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: what + " not found",
			Code:    http.StatusNotFound,
		})
	}

	log.Warn().Err(err).Str("resource", what).Str("code", c.Param("code")).Msg("content lookup failed")
	return c.JSON(http.StatusBadGateway, models.ErrorResponse{
		Error:   "content_unavailable",
		Message: "Failed to load " + what + ": " + err.Error(),
		Code:    http.StatusBadGateway,
	})
}
