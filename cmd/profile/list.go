package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/hydrox/hydrox/cmd/global"
	"github.com/hydrox/hydrox/internal/profiles"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

const (
	graphMinTemp = 0
	graphMaxTemp = 100
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all stored profiles and their curves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := global.OpenStore()
		defer store.Close()

		records, err := store.ListProfiles()
		if err != nil {
			return err
		}
		settings, err := loadSettings(store)
		if err != nil {
			return err
		}
		if len(records) <= 0 {
			ui.Info("No profiles stored yet")
			return nil
		}

		for idx, record := range records {
			if idx > 0 {
				ui.Printfln("")
				ui.Printfln("")
			}

			state := ""
			if settings.ActiveProfileId != nil && *settings.ActiveProfileId == record.ID {
				state = "active"
			}
			if settings.DefaultProfileId != nil && *settings.DefaultProfileId == record.ID {
				state = strings.TrimPrefix(state+", default", ", ")
			}

			profile, err := profiles.Decode(record.Document)
			if err != nil {
				global.PrintTables(table.Table{
					Headers: []string{"ID", "Name", "State", "Error"},
					Rows:    [][]string{{strconv.Itoa(record.ID), record.Name, state, err.Error()}},
				})
				continue
			}

			global.PrintTables(table.Table{
				Headers: []string{"ID", "Name", "State", "Rules", "Created"},
				Rows: [][]string{
					{strconv.Itoa(record.ID), record.Name, state, strconv.Itoa(len(profile.Rules)), record.CreatedAt.Format("2006-01-02 15:04")},
				},
			})

			for _, rule := range profile.Rules {
				printRule(rule)
			}
		}
		return nil
	},
}

func printRule(rule profiles.Rule) {
	curve := rule.Curve()
	if curve.IsEmpty() {
		ui.Printfln("Sensor %s -> channels %v: no points", rule.SensorId, rule.Channels)
		return
	}

	values := make([]float64, 0, graphMaxTemp-graphMinTemp+1)
	for temp := graphMinTemp; temp <= graphMaxTemp; temp++ {
		value, _ := curve.Evaluate(float64(temp))
		values = append(values, value)
	}

	caption := fmt.Sprintf("Sensor %s -> channels %v (%% / °C)", rule.SensorId, rule.Channels)
	graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
	ui.Printfln(graph)
}

func init() {
	Command.AddCommand(listCmd)
}
