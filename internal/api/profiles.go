package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/labstack/echo/v4"
)

const clearProfile = "clear"

type ProfileView struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	CreatedAt   time.Time         `json:"createdAt"`
	Active      bool              `json:"active"`
	Default     bool              `json:"default"`
	Profile     *profiles.Profile `json:"profile,omitempty"`
	DecodeError string            `json:"decodeError,omitempty"`
}

func (h *handlers) registerProfileEndpoints(rest *echo.Echo) {
	group := rest.Group("/profile")

	group.GET("/", h.getProfiles)
	group.POST("/", h.createProfile)
	group.GET("/:"+urlParamId+"/", h.getProfile)
	group.DELETE("/:"+urlParamId+"/", h.deleteProfile)
	group.POST("/:"+urlParamId+"/apply/", h.applyProfile)
	group.POST("/:"+urlParamId+"/default/", h.setDefaultProfile)
}

func (h *handlers) getProfiles(c echo.Context) error {
	records, err := h.Store.ListProfiles()
	if err != nil {
		return returnError(c, err)
	}
	settings, err := h.systemSettings()
	if err != nil {
		return returnError(c, err)
	}

	views := []ProfileView{}
	for _, record := range records {
		views = append(views, newProfileView(record, settings))
	}
	return c.JSONPretty(http.StatusOK, views, indentationChar)
}

func (h *handlers) getProfile(c echo.Context) error {
	id, ok := intParam(c, urlParamId)
	if !ok {
		return returnNotFound(c, c.Param(urlParamId))
	}
	record, err := h.Store.LoadProfile(id)
	if errors.Is(err, persistence.ErrNotFound) {
		return returnNotFound(c, c.Param(urlParamId))
	} else if err != nil {
		return returnError(c, err)
	}
	settings, err := h.systemSettings()
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, newProfileView(record, settings), indentationChar)
}

// createProfile accepts a profile document (either layout) with an additional "name" field
func (h *handlers) createProfile(c echo.Context) error {
	body := map[string]interface{}{}
	if err := c.Bind(&body); err != nil {
		return returnBadRequest(c, "Invalid profile document: "+err.Error())
	}

	name, _ := body["name"].(string)
	delete(body, "name")

	profile, err := profiles.DecodeMap(body)
	if err != nil {
		return returnBadRequest(c, err.Error())
	}
	profile.Name = strings.TrimSpace(name)
	if err := profiles.Validate(profile); err != nil {
		return returnBadRequest(c, err.Error())
	}

	document, err := profiles.Encode(profile)
	if err != nil {
		return returnError(c, err)
	}
	record, err := h.Store.SaveProfile(persistence.ProfileRecord{
		Name:     profile.Name,
		Document: document,
	})
	if err != nil {
		return returnError(c, err)
	}
	settings, err := h.systemSettings()
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusCreated, newProfileView(record, settings), indentationChar)
}

func (h *handlers) deleteProfile(c echo.Context) error {
	id, ok := intParam(c, urlParamId)
	if !ok {
		return returnNotFound(c, c.Param(urlParamId))
	}
	err := h.Store.DeleteProfile(id)
	if errors.Is(err, persistence.ErrNotFound) {
		return returnNotFound(c, c.Param(urlParamId))
	} else if err != nil {
		return returnError(c, err)
	}

	_, err = h.Store.UpdateSystemSettings(func(settings *persistence.SystemSettings) error {
		if settings.ActiveProfileId != nil && *settings.ActiveProfileId == id {
			settings.ActiveProfileId = nil
		}
		if settings.DefaultProfileId != nil && *settings.DefaultProfileId == id {
			settings.DefaultProfileId = nil
		}
		return nil
	})
	if err != nil {
		return returnError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// applyProfile selects the profile used by the control loop, "clear" deselects it
func (h *handlers) applyProfile(c echo.Context) error {
	return h.selectProfile(c, func(settings *persistence.SystemSettings, id *int) {
		settings.ActiveProfileId = id
	})
}

func (h *handlers) setDefaultProfile(c echo.Context) error {
	return h.selectProfile(c, func(settings *persistence.SystemSettings, id *int) {
		settings.DefaultProfileId = id
	})
}

func (h *handlers) selectProfile(c echo.Context, apply func(settings *persistence.SystemSettings, id *int)) error {
	var selected *int
	if c.Param(urlParamId) != clearProfile {
		id, ok := intParam(c, urlParamId)
		if !ok {
			return returnNotFound(c, c.Param(urlParamId))
		}
		_, err := h.Store.LoadProfile(id)
		if errors.Is(err, persistence.ErrNotFound) {
			return returnNotFound(c, c.Param(urlParamId))
		} else if err != nil {
			return returnError(c, err)
		}
		selected = &id
	}

	settings, err := h.Store.UpdateSystemSettings(func(settings *persistence.SystemSettings) error {
		apply(settings, selected)
		return nil
	})
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, settings, indentationChar)
}

func (h *handlers) systemSettings() (persistence.SystemSettings, error) {
	settings, err := h.Store.LoadSystemSettings()
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return settings, err
	}
	return settings, nil
}

func newProfileView(record persistence.ProfileRecord, settings persistence.SystemSettings) ProfileView {
	view := ProfileView{
		ID:        record.ID,
		Name:      record.Name,
		CreatedAt: record.CreatedAt,
		Active:    settings.ActiveProfileId != nil && *settings.ActiveProfileId == record.ID,
		Default:   settings.DefaultProfileId != nil && *settings.DefaultProfileId == record.ID,
	}
	profile, err := profiles.Decode(record.Document)
	if err != nil {
		view.DecodeError = err.Error()
		return view
	}
	profile.ID = record.ID
	profile.Name = record.Name
	view.Profile = &profile
	return view
}
