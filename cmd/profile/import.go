package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hydrox/hydrox/cmd/global"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/spf13/cobra"
)

var profileName string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate and store a profile document",
	Long: `Reads a profile document (current or legacy layout), validates it
and stores it. The name defaults to the "name" field of the document,
then to the file name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		documentName, _ := fields["name"].(string)
		delete(fields, "name")

		profile, err := profiles.DecodeMap(fields)
		if err != nil {
			return err
		}
		profile.Name = strings.TrimSpace(profileName)
		if profile.Name == "" {
			profile.Name = strings.TrimSpace(documentName)
		}
		if profile.Name == "" {
			profile.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if err := profiles.Validate(profile); err != nil {
			return err
		}
		document, err := profiles.Encode(profile)
		if err != nil {
			return err
		}

		store := global.OpenStore()
		defer store.Close()

		record, err := store.SaveProfile(persistence.ProfileRecord{Name: profile.Name, Document: document})
		if err != nil {
			return err
		}
		ui.Success("Stored profile '%s' with id %d", record.Name, record.ID)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&profileName, "name", "n", "", "Name of the profile")
	Command.AddCommand(importCmd)
}
