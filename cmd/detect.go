package cmd

import (
	"strconv"

	"github.com/hydrox/hydrox/cmd/global"
	"github.com/hydrox/hydrox/internal"
	"github.com/hydrox/hydrox/internal/configuration"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/hydrox/hydrox/internal/util"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect devices",
	Long:  `Detects all sensors and controller channels and prints them as a list`,
	Run: func(cmd *cobra.Command, args []string) {
		configuration.ReadConfigFile()
		hardware := internal.NewHardware(configuration.CurrentConfig)

		// === Sensors ===
		var sensorRows [][]string
		cpuText := "N/A"
		if temp, err := hardware.Cpu.GetCpuTemperature(); err == nil {
			cpuText = sensors.FormatTemp(temp, sensors.UnitCelsius)
		}
		sensorRows = append(sensorRows, []string{"", sensors.KindCpu, sensors.CpuSensorId, cpuText})

		probes := hardware.Probes.ReadAll()
		for _, id := range hardware.Probes.Discover() {
			valueText := "N/A"
			if value, ok := probes[id]; ok {
				valueText = sensors.FormatTemp(value, sensors.UnitCelsius)
			}
			sensorRows = append(sensorRows, []string{"", sensors.KindDs18b20, id, valueText})
		}

		if !hardware.Hub.HasDevices() {
			ui.Warning("liquidctl does not report any device")
		}
		temps, err := hardware.Hub.ReadTemps()
		if err != nil {
			ui.Debug("No liquid temperatures: %v", err)
		}
		liquid := sensors.MapLiquidTemps(temps)
		for _, id := range util.SortedKeys(liquid) {
			sensorRows = append(sensorRows, []string{"", sensors.KindLiquidctl, id, sensors.FormatTemp(liquid[id], sensors.UnitCelsius)})
		}

		sensorTable := table.Table{
			Headers: []string{"Sensors", "Kind", "Source", "Value"},
			Rows:    sensorRows,
		}

		// === Channels ===
		var channelRows [][]string
		rpms, err := hardware.Hub.ReadRpms()
		if err != nil {
			ui.Warning("Unable to read channel rpms: %v", err)
		}
		for _, channel := range util.SortedKeys(rpms) {
			channelRows = append(channelRows, []string{"", strconv.Itoa(channel), strconv.Itoa(rpms[channel])})
		}
		if rpm, err := hardware.CpuFan.GetRpm(); err == nil {
			channelRows = append(channelRows, []string{"", "cpu fan", strconv.Itoa(rpm)})
		}

		channelTable := table.Table{
			Headers: []string{"Channels", "Index", "RPM"},
			Rows:    channelRows,
		}

		ui.Printfln("> liquidctl (%s)", configuration.CurrentConfig.Liquidctl.Path)
		global.PrintTables(sensorTable, channelTable)
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
