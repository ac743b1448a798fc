package profile

import (
	"github.com/hydrox/hydrox/cmd/global"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/spf13/cobra"
)

const clearProfile = "clear"

var asDefault bool

var applyCmd = &cobra.Command{
	Use:   "apply <id|clear>",
	Short: "Select the profile used by the control loop",
	Long:  `"clear" deselects the current profile, which stops automatic control.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := global.OpenStore()
		defer store.Close()

		var selected *int
		if args[0] != clearProfile {
			id, err := parseId(args[0])
			if err != nil {
				return err
			}
			if _, err := loadProfile(store, id); err != nil {
				return err
			}
			selected = &id
		}

		_, err := store.UpdateSystemSettings(func(settings *persistence.SystemSettings) error {
			if asDefault {
				settings.DefaultProfileId = selected
			} else {
				settings.ActiveProfileId = selected
			}
			return nil
		})
		if err != nil {
			return err
		}

		switch {
		case selected == nil:
			ui.Success("Profile selection cleared")
		case asDefault:
			ui.Success("Profile %d is now the default profile", *selected)
		default:
			ui.Success("Profile %d is now active", *selected)
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&asDefault, "default", "d", false, "Set the default profile instead of the active one")
	Command.AddCommand(applyCmd)
}
