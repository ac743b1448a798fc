package cmd

import (
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/spf13/cobra"
)

const Version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hydrox",
	Long:  `All software has versions. This is hydrox's`,
	Run: func(cmd *cobra.Command, args []string) {
		ui.Printfln(Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
