package tools

import (
	"context"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/aretw0/arbor/pkg/registry"
)

// WeatherReport is the fixed shape returned by the weather tool.
type WeatherReport struct {
	TempC     int    `json:"tempC"`
	Condition string `json:"condition"`
}

// weatherTable is the demo lookup, keyed by lowercased city name.
var weatherTable = map[string]WeatherReport{
	"delhi":     {TempC: 32, Condition: "Cloudy"},
	"london":    {TempC: 17, Condition: "Drizzle"},
	"tokyo":     {TempC: 24, Condition: "Sunny"},
	"sao paulo": {TempC: 26, Condition: "Thunderstorms"},
}

// weatherDefault is returned for any city missing from the table.
var weatherDefault = WeatherReport{TempC: 28, Condition: "Clear"}

type weatherParams struct {
	City string `mapstructure:"city"`
}

// Weather returns the lookup-table weather tool. Unknown cities resolve to
// the documented default rather than failing.
func Weather() registry.Tool {
	citySchema := openapi3.NewStringSchema()
	citySchema.Description = "City name, e.g. \"Delhi\""
	schema := openapi3.NewObjectSchema().WithProperty("city", citySchema)
	schema.Required = []string{"city"}

	return registry.Tool{
		Name:        "weather",
		Description: "Looks up current weather for a city from a fixed table.",
		Params:      schema,
		Handler:     lookupWeather,
	}
}

func lookupWeather(ctx context.Context, params map[string]any) (any, error) {
	var p weatherParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	if report, ok := weatherTable[strings.ToLower(strings.TrimSpace(p.City))]; ok {
		return report, nil
	}
	return weatherDefault, nil
}
