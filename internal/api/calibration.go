package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

func (h *handlers) registerCalibrationEndpoints(rest *echo.Echo) {
	group := rest.Group("/calibration")

	group.GET("/", h.getCalibration)
	group.POST("/", h.startCalibration)
}

func (h *handlers) getCalibration(c echo.Context) error {
	data := reprint.This(h.Calibration.Status())
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

// startCalibration starts a new run, answering 409 if one is already in progress
func (h *handlers) startCalibration(c echo.Context) error {
	status, started := h.Calibration.Start()
	data := reprint.This(status)
	if !started {
		return c.JSONPretty(http.StatusConflict, data, indentationChar)
	}
	return c.JSONPretty(http.StatusAccepted, data, indentationChar)
}
