package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *handlers) registerOverrideEndpoints(rest *echo.Echo) {
	group := rest.Group("/override")

	group.GET("/", h.getOverrides)
	group.POST("/:"+urlParamChannel+"/", h.markOverride)
	group.DELETE("/:"+urlParamChannel+"/", h.clearOverride)
}

func (h *handlers) getOverrides(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, h.Overrides.Active(), indentationChar)
}

func (h *handlers) markOverride(c echo.Context) error {
	channel, ok := h.channelParam(c)
	if !ok {
		return returnNotFound(c, c.Param(urlParamChannel))
	}
	h.Overrides.Mark(channel)
	return c.JSONPretty(http.StatusOK, h.Overrides.Active(), indentationChar)
}

// clearOverride hands the channel back to the active profile
func (h *handlers) clearOverride(c echo.Context) error {
	channel, ok := h.channelParam(c)
	if !ok {
		return returnNotFound(c, c.Param(urlParamChannel))
	}
	h.Overrides.Clear(channel)
	return c.JSONPretty(http.StatusOK, h.Overrides.Active(), indentationChar)
}
