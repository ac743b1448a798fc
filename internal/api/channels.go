package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hydrox/hydrox/internal/controller"
	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

type ChannelView struct {
	fans.Channel
	IsPump     bool     `json:"isPump"`
	Overridden bool     `json:"overridden"`
	Commanded  *int     `json:"commanded,omitempty"`
	Rpm        *float64 `json:"rpm,omitempty"`
	// Target is what the active profile would command right now
	Target *int `json:"target,omitempty"`
}

type SpeedRequest struct {
	Percent *int `json:"percent"`
}

func (h *handlers) registerChannelEndpoints(rest *echo.Echo) {
	group := rest.Group("/channel")

	group.GET("/", h.getChannels)
	group.GET("/:"+urlParamChannel+"/", h.getChannel)
	group.POST("/:"+urlParamChannel+"/speed/", h.setChannelSpeed)
}

func (h *handlers) getChannels(c echo.Context) error {
	views, err := h.channelViews(nil)
	if err != nil {
		return returnError(c, err)
	}
	data := reprint.This(views)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func (h *handlers) getChannel(c echo.Context) error {
	channel, ok := h.channelParam(c)
	if !ok {
		return returnNotFound(c, c.Param(urlParamChannel))
	}
	views, err := h.channelViews(&channel)
	if err != nil {
		return returnError(c, err)
	}
	if len(views) != 1 {
		return returnNotFound(c, c.Param(urlParamChannel))
	}
	return c.JSONPretty(http.StatusOK, views[0], indentationChar)
}

// setChannelSpeed commands a channel manually and excludes it from
// profile control until the override is cleared.
func (h *handlers) setChannelSpeed(c echo.Context) error {
	channel, ok := h.channelParam(c)
	if !ok {
		return returnNotFound(c, c.Param(urlParamChannel))
	}

	request := SpeedRequest{}
	if err := c.Bind(&request); err != nil {
		return returnBadRequest(c, "Invalid speed request: "+err.Error())
	}
	if request.Percent == nil {
		return returnBadRequest(c, "Missing field 'percent'")
	}
	percent := *request.Percent
	if percent < fans.MinPercent || percent > fans.MaxPercent {
		return returnBadRequest(c, fmt.Sprintf("Percent must be within %d..%d, got %d", fans.MinPercent, fans.MaxPercent, percent))
	}

	h.Overrides.Mark(channel)
	if err := h.Commander.Command(channel, percent); err != nil {
		return returnError(c, err)
	}
	ui.Info("Channel %d manually set to %d%%", channel, percent)

	return c.JSONPretty(http.StatusOK, &Result{
		Name:    "Ok",
		Message: fmt.Sprintf("Channel %d set to %d%%", channel, percent),
	}, indentationChar)
}

// channelParam parses the channel url parameter and checks that it is an active channel
func (h *handlers) channelParam(c echo.Context) (int, bool) {
	index, ok := intParam(c, urlParamChannel)
	if !ok {
		return 0, false
	}
	channels, err := h.Store.ListChannels()
	if err != nil {
		ui.Warning("Unable to load channels: %v", err)
		return 0, false
	}
	for _, channel := range channels {
		if channel.Index == index {
			return index, channel.Active
		}
	}
	return 0, false
}

// channelViews describes all channels, or only the given one
func (h *handlers) channelViews(only *int) ([]ChannelView, error) {
	channels, err := h.Store.ListChannels()
	if err != nil {
		return nil, err
	}
	settings, err := h.systemSettings()
	if err != nil {
		return nil, err
	}

	targets := map[int]int{}
	if h.Engine != nil {
		profile, err := controller.LoadActiveProfile(h.Store)
		if err == nil {
			targets, err = h.targets(profile, only)
			if err != nil {
				return nil, err
			}
		} else if !errors.Is(err, controller.ErrNoActiveProfile) {
			ui.Warning("Unable to load active profile: %v", err)
		}
	}

	commanded := h.Commander.State().Snapshot()

	views := []ChannelView{}
	for _, channel := range channels {
		if only != nil && channel.Index != *only {
			continue
		}
		view := ChannelView{
			Channel:    channel,
			IsPump:     settings.IsPump(channel.Index),
			Overridden: h.Overrides.IsOverridden(channel.Index),
		}
		if percent, ok := commanded[channel.Index]; ok {
			view.Commanded = &percent
		}
		if h.Rpms != nil {
			if rpm, ok := h.Rpms.AverageRpm(channel.Index); ok {
				view.Rpm = &rpm
			}
		}
		if target, ok := targets[channel.Index]; ok {
			view.Target = &target
		}
		views = append(views, view)
	}
	return views, nil
}

func (h *handlers) targets(profile profiles.Profile, only *int) (map[int]int, error) {
	if only == nil {
		return h.Engine.ComputeTargets(profile)
	}
	target, ok, err := h.Engine.TargetFor(profile, *only)
	if err != nil || !ok {
		return map[int]int{}, err
	}
	return map[int]int{*only: target}, nil
}
