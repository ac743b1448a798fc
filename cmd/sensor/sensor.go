package sensor

import (
	"fmt"
	"strconv"

	"github.com/hydrox/hydrox/cmd/global"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/sensors"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var sensorId int

var Command = &cobra.Command{
	Use:   "sensor",
	Short: "Print the registered sensors and their latest reading",
	Long: `Without --id all registered sensors are listed, with --id only
the latest value of that sensor is printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := global.OpenStore()
		defer store.Close()

		known, err := store.ListSensors()
		if err != nil {
			return err
		}
		latest, err := store.LatestReadings(persistence.KindSensor)
		if err != nil {
			return err
		}

		if sensorId > 0 {
			for _, sensor := range known {
				if sensor.ID != sensorId {
					continue
				}
				reading, ok := latest[sensor.LogicalId()]
				if !ok {
					return fmt.Errorf("no reading for sensor %d yet", sensorId)
				}
				fmt.Printf("%.1f", reading.Value)
				return nil
			}
			return fmt.Errorf("no sensor with id found: %d", sensorId)
		}

		var rows [][]string
		for _, sensor := range known {
			valueText := "N/A"
			timestampText := ""
			if reading, ok := latest[sensor.LogicalId()]; ok {
				valueText = sensors.FormatTemp(reading.Value, sensor.Unit)
				timestampText = reading.Timestamp.Format("15:04:05")
			}
			rows = append(rows, []string{
				strconv.Itoa(sensor.ID), sensor.Kind, sensor.SourceId, sensor.Name, valueText, timestampText,
			})
		}
		if len(rows) <= 0 {
			ui.Info("No sensors registered yet")
			return nil
		}

		global.PrintTables(table.Table{
			Headers: []string{"ID", "Kind", "Source", "Name", "Value", "Time"},
			Rows:    rows,
		})
		return nil
	},
}

func init() {
	Command.Flags().IntVarP(
		&sensorId,
		"id", "i",
		0,
		"Sensor ID as listed by this command",
	)
}
