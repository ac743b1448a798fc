package profile

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:              "profile",
	Short:            "Profile related commands",
	Long:             ``,
	TraverseChildren: true,
}

func parseId(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid profile id: %s", arg)
	}
	return id, nil
}

// loadProfile returns the decoded profile with the given id
func loadProfile(store persistence.Persistence, id int) (profiles.Profile, error) {
	record, err := store.LoadProfile(id)
	if errors.Is(err, persistence.ErrNotFound) {
		return profiles.Profile{}, fmt.Errorf("no profile with id found: %d", id)
	} else if err != nil {
		return profiles.Profile{}, err
	}
	profile, err := profiles.Decode(record.Document)
	if err != nil {
		return profiles.Profile{}, fmt.Errorf("profile %d: %w", id, err)
	}
	profile.ID = record.ID
	profile.Name = record.Name
	return profile, nil
}

func loadSettings(store persistence.Persistence) (persistence.SystemSettings, error) {
	settings, err := store.LoadSystemSettings()
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return settings, err
	}
	return settings, nil
}
