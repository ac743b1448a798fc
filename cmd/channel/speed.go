package channel

import (
	"fmt"
	"strconv"

	"github.com/hydrox/hydrox/cmd/global"
	"github.com/hydrox/hydrox/internal/controller"
	"github.com/hydrox/hydrox/internal/fans"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var speedCmd = &cobra.Command{
	Use:   "speed [percent]",
	Short: "Get/Set the speed of a channel in percent ([0..100])",
	Long: `Without an argument the last commanded speed is printed. A running daemon
takes the channel back on its next cycle unless it is overridden through the API.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()
		if err := checkChannel(); err != nil {
			return err
		}

		store := global.OpenStore()
		defer store.Close()
		state := controller.NewActuatorState(store)

		if len(args) <= 0 {
			percent, ok := state.LastCommanded(channelIndex)
			if !ok {
				return fmt.Errorf("channel %d has not been commanded yet", channelIndex)
			}
			fmt.Printf("%d", percent)
			return nil
		}

		percent, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		if percent < fans.MinPercent || percent > fans.MaxPercent {
			return fmt.Errorf("percent must be within %d..%d, got %d", fans.MinPercent, fans.MaxPercent, percent)
		}
		return controller.NewCommander(newClient(), state).Command(channelIndex, percent)
	},
}

func init() {
	Command.AddCommand(speedCmd)
}
