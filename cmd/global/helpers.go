package global

import (
	"bytes"

	"github.com/hydrox/hydrox/internal/configuration"
	"github.com/hydrox/hydrox/internal/persistence"
	"github.com/hydrox/hydrox/internal/ui"
	"github.com/mgutz/ansi"
	"github.com/tomlazar/table"
)

// OpenStore reads the configuration and opens the database it points to
func OpenStore() persistence.Persistence {
	configuration.ReadConfigFile()
	config := configuration.CurrentConfig

	store := persistence.NewPersistence(config.DbPath, config.Persistence.Retention)
	if err := store.Init(); err != nil {
		ui.Fatal("Unable to open database %s: %v", config.DbPath, err)
	}
	return store
}

func tableConfig() *table.Config {
	return &table.Config{
		ShowIndex:       false,
		Color:           !NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	}
}

// PrintTables prints all tables that have rows, one after another
func PrintTables(tables ...table.Table) {
	for idx, t := range tables {
		if t.Rows == nil {
			continue
		}
		var buf bytes.Buffer
		if err := t.WriteTable(&buf, tableConfig()); err != nil {
			ui.Fatal("Error printing table: %v", err)
		}
		tableString := buf.String()
		if idx < (len(tables) - 1) {
			ui.Printf(tableString)
		} else {
			ui.Printfln(tableString)
		}
	}
}
