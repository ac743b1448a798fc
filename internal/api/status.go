package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *handlers) registerStatusEndpoints(rest *echo.Echo) {
	rest.GET("/status/", h.getStatus)
}

func (h *handlers) getStatus(c echo.Context) error {
	if h.Loop == nil {
		return returnNotFound(c, "status")
	}
	return c.JSONPretty(http.StatusOK, h.Loop.Statistics(), indentationChar)
}
