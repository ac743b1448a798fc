package profile

import (
	"encoding/json"

	"github.com/hydrox/hydrox/cmd/global"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <id> <file>",
	Short: "Write a stored profile to a file",
	Long:  `The profile is written in the current document layout, legacy profiles are converted.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseId(args[0])
		if err != nil {
			return err
		}

		store := global.OpenStore()
		defer store.Close()

		profile, err := loadProfile(store, id)
		if err != nil {
			return err
		}

		document, err := profiles.Encode(profile)
		if err != nil {
			return err
		}
		fields := map[string]interface{}{}
		if err := json.Unmarshal(document, &fields); err != nil {
			return err
		}
		fields["name"] = profile.Name

		data, err := json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}
		if err := util.WriteFileAtomic(args[1], append(data, '\n')); err != nil {
			return err
		}
		ui.Success("Exported profile '%s' to %s", profile.Name, args[1])
		return nil
	},
}

func init() {
	Command.AddCommand(exportCmd)
}
