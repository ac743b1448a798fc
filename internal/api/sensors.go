package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

type SensorView struct {
	sensors.Sensor
	LogicalId string     `json:"logicalId"`
	Value     *float64   `json:"value,omitempty"`
	Formatted string     `json:"formatted,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type SensorUpdate struct {
	Name   *string `json:"name"`
	Unit   *string `json:"unit"`
	Active *bool   `json:"active"`
}

func (h *handlers) registerSensorEndpoints(rest *echo.Echo) {
	group := rest.Group("/sensor")

	group.GET("/", h.getSensors)
	group.POST("/:"+urlParamId+"/", h.updateSensor)
}

// getSensors lists the cpu sensor and all registered sensors with their latest reading
func (h *handlers) getSensors(c echo.Context) error {
	known, err := h.Store.ListSensors()
	if err != nil {
		return returnError(c, err)
	}
	latest, err := h.Store.LatestReadings(persistence.KindSensor)
	if err != nil {
		return returnError(c, err)
	}
	cpu, err := h.Store.LatestReadings(persistence.KindCpu)
	if err != nil {
		return returnError(c, err)
	}

	cpuView := SensorView{
		Sensor: sensors.Sensor{
			Kind:        sensors.KindCpu,
			SourceId:    sensors.CpuSensorId,
			Name:        "CPU",
			DefaultName: "CPU",
			Unit:        sensors.UnitCelsius,
			Active:      true,
		},
		LogicalId: sensors.CpuSensorId,
	}
	if reading, ok := cpu[sensors.CpuSensorId]; ok {
		cpuView.withReading(reading)
	}

	views := []SensorView{cpuView}
	for _, sensor := range known {
		view := SensorView{
			Sensor:    sensor,
			LogicalId: sensor.LogicalId(),
		}
		if reading, ok := latest[sensor.LogicalId()]; ok {
			view.withReading(reading)
		}
		views = append(views, view)
	}

	data := reprint.This(views)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func (h *handlers) updateSensor(c echo.Context) error {
	id, ok := intParam(c, urlParamId)
	if !ok {
		return returnNotFound(c, c.Param(urlParamId))
	}
	update := SensorUpdate{}
	if err := c.Bind(&update); err != nil {
		return returnBadRequest(c, "Invalid sensor update: "+err.Error())
	}

	known, err := h.Store.ListSensors()
	if err != nil {
		return returnError(c, err)
	}
	for _, sensor := range known {
		if sensor.ID != id {
			continue
		}
		if update.Name != nil {
			sensor.Name = strings.TrimSpace(*update.Name)
			if sensor.Name == "" {
				sensor.Name = sensor.DefaultName
			}
		}
		if update.Unit != nil {
			sensor.Unit = sensors.NormalizeUnit(*update.Unit)
		}
		if update.Active != nil {
			sensor.Active = *update.Active
		}
		err := h.Store.SaveSensor(sensor)
		if errors.Is(err, persistence.ErrNotFound) {
			break
		} else if err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, sensor, indentationChar)
	}
	return returnNotFound(c, c.Param(urlParamId))
}

func (v *SensorView) withReading(reading persistence.Reading) {
	value := reading.Value
	timestamp := reading.Timestamp
	v.Value = &value
	v.Timestamp = &timestamp
	v.Formatted = sensors.FormatTemp(value, v.Unit)
}
