package api

import (
	"net/http"
	"strconv"

	"github.com/hydrox/hydrox/internal/calibration"
	"github.com/hydrox/hydrox/internal/controller"
	"github.com/hydrox/hydrox/internal/override"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	urlParamId      = "id"
	urlParamChannel = "channel"
	indentationChar = "  "
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

type Calibration interface {
	Start() (calibration.Status, bool)
	Status() calibration.Status
}

type RpmSource interface {
	AverageRpm(channel int) (float64, bool)
}

type LoopStatistics interface {
	Statistics() controller.Statistics
}

// Dependencies are the components exposed by the rest service
type Dependencies struct {
	Store       persistence.Persistence
	Overrides   *override.Registry
	Calibration Calibration
	Commander   *controller.Commander
	Engine      *controller.Engine
	Rpms        RpmSource
	Loop        LoopStatistics
	// Registerer receives the request metrics, nil disables them
	Registerer prometheus.Registerer
}

type handlers struct {
	Dependencies
}

func CreateRestService(deps Dependencies) *echo.Echo {
	echoRest := CreateWebserver()

	echoRest.Use(middleware.Logger())
	if deps.Registerer != nil {
		echoRest.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "hydrox",
			Subsystem:  "api",
			Registerer: deps.Registerer,
		}))
	}

	echoRest.GET("/alive/", isAlive)

	h := &handlers{Dependencies: deps}
	h.registerProfileEndpoints(echoRest)
	h.registerOverrideEndpoints(echoRest)
	h.registerCalibrationEndpoints(echoRest)
	h.registerChannelEndpoints(echoRest)
	h.registerSensorEndpoints(echoRest)
	h.registerStatusEndpoints(echoRest)

	return echoRest
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}

// return a "bad request" message
func returnBadRequest(c echo.Context, message string) (err error) {
	return c.JSONPretty(http.StatusBadRequest, &Result{
		Name:    "Bad request",
		Message: message,
	}, indentationChar)
}

// return the error message of an error
func returnError(c echo.Context, e error) (err error) {
	return c.JSONPretty(http.StatusInternalServerError, &Result{
		Name:    "Unknown Error",
		Message: e.Error(),
	}, indentationChar)
}

func intParam(c echo.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, false
	}
	return value, true
}
