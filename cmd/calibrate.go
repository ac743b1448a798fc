package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hydrox/hydrox/cmd/global"
	"github.com/hydrox/hydrox/internal"
	"github.com/hydrox/hydrox/internal/configuration"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Measure the maximum rpm of all active channels",
	Long: `Runs all active channels at full speed, stores the measured rpm as the
maximum of each channel and restores the speeds of the active profile.
The daemon must not be running, use the API to calibrate a running daemon.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := global.OpenStore()
		defer store.Close()

		config := configuration.CurrentConfig
		daemon, err := internal.NewDaemon(config, store, internal.NewHardware(config))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ui.Info("Calibrating, this takes about %s...", config.Calibration.Duration+config.Calibration.Grace)
		if _, err := daemon.Calibrate(ctx); err != nil {
			return err
		}

		channels, err := store.ListChannels()
		if err != nil {
			return err
		}
		var rows [][]string
		for _, channel := range channels {
			if !channel.Active {
				continue
			}
			maxRpm := "N/A"
			if channel.HasMaxRpm() {
				maxRpm = strconv.Itoa(*channel.MaxRpm)
			}
			rows = append(rows, []string{strconv.Itoa(channel.Index), channel.Name, maxRpm})
		}
		global.PrintTables(table.Table{
			Headers: []string{"Channel", "Name", "Max RPM"},
			Rows:    rows,
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
}
