package channel

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rpmCmd = &cobra.Command{
	Use:   "rpm",
	Short: "Get the current rpm of a channel",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()
		if err := checkChannel(); err != nil {
			return err
		}

		rpms, err := newClient().ReadRpms()
		if err != nil {
			return err
		}
		rpm, ok := rpms[channelIndex]
		if !ok {
			return fmt.Errorf("channel %d reports no rpm", channelIndex)
		}
		fmt.Printf("%d", rpm)
		return nil
	},
}

func init() {
	Command.AddCommand(rpmCmd)
}
