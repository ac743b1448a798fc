package channel

import (
	"fmt"

	"github.com/hydrox/hydrox/internal/configuration"
	"github.com/hydrox/hydrox/internal/fans"
	"github.com/hydrox/hydrox/internal/liquidctl"
	"github.com/spf13/cobra"
)

var channelIndex int

var Command = &cobra.Command{
	Use:              "channel",
	Short:            "Channel related commands",
	Long:             ``,
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().IntVarP(
		&channelIndex,
		"channel", "c",
		0,
		fmt.Sprintf("Channel index [1..%d]", fans.DefaultChannelCount),
	)
	_ = Command.MarkPersistentFlagRequired("channel")
}

func checkChannel() error {
	if channelIndex < 1 || channelIndex > fans.DefaultChannelCount {
		return fmt.Errorf("invalid channel %d, expected 1..%d", channelIndex, fans.DefaultChannelCount)
	}
	return nil
}

func newClient() liquidctl.Client {
	configuration.ReadConfigFile()
	config := configuration.CurrentConfig.Liquidctl
	return liquidctl.NewClient(config.Path, config.Timeout)
}
