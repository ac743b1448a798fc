package sensors

import "fmt"

// MaxLiquidProbes is the number of controller temperature probes mapped to sensors
const MaxLiquidProbes = 2

func LiquidSourceId(index int) string {
	return fmt.Sprintf("liquid_temp_%d", index)
}

func LiquidDefaultName(index int) string {
	return fmt.Sprintf("Liquid Temp %d", index)
}

// MapLiquidTemps positionally maps controller temperatures onto liquid probe source ids
func MapLiquidTemps(temps []float64) map[string]float64 {
	result := map[string]float64{}
	for i, value := range temps {
		if i >= MaxLiquidProbes {
			break
		}
		result[LiquidSourceId(i+1)] = value
	}
	return result
}
