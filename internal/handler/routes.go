package handler

import "github.com/labstack/echo/v4"

type Handlers struct {
	Search  *SearchHandler
	Content *ContentHandler
	Cache   *CacheHandler
}

func Register(e *echo.Echo, h Handlers) {
	api := e.Group("/api/v1")

	api.GET("/search/:code", h.Search.Search)
	api.GET("/searchcode/:code", h.Search.SearchCode)

	if h.Content != nil {
		api.GET("/content/airports/:code", h.Content.Airport)
		api.GET("/content/airlines/:code", h.Content.Airline)
		api.GET("/content/layout", h.Content.Layout)
	}

	if h.Cache != nil {
		api.POST("/cache/invalidate", h.Cache.Invalidate)
	}

	e.GET("/health", HealthHandler)
}
