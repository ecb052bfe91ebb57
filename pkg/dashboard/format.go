package dashboard

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/utils"
)

const (
	Missing    = "-"
	DateLayout = "2006-01-02 15:04:05"
)

// FormatLapTime renders seconds as mm:ss.mmm. Unset, zero and negative values
// render as "-".
func FormatLapTime(v null.Val[float64]) string {
	t, ok := v.Get()
	if !ok || t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return Missing
	}
	minutes := int(math.Floor(t / 60))
	seconds := int(math.Floor(math.Mod(t, 60)))
	millis := int(math.Floor(math.Mod(t, 1) * 1000))
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}

// FormatScore renders v with 2 decimals
func FormatScore(v null.Val[float64]) string {
	s, ok := v.Get()
	if !ok || math.IsNaN(s) || math.IsInf(s, 0) {
		return Missing
	}
	return utils.FormatFixed(s, 2)
}

// FormatDate renders an api timestamp in local time
func FormatDate(s string) string {
	return formatDateIn(s, time.Local)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// formatDateIn parses s (timestamps without zone are taken as loc) and renders it in loc
func formatDateIn(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc).Format(DateLayout)
		}
	}
	return Missing
}

// FormatParamName turns front_wing_angle into Front Wing Angle
func FormatParamName(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	return strings.Join(lo.Map(words, func(w string, _ int) string {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	}), " ")
}

type ParamRow struct {
	Name  string
	Value string
	Unit  string
}

// ParameterRows unpacks setup parameters sorted by name.
// Values may be plain or objects of the form {"value": ..., "unit": ...}.
func ParameterRows(params map[string]any) []ParamRow {
	keys := lo.Keys(params)
	slices.Sort(keys)
	return lo.Map(keys, func(k string, _ int) ParamRow {
		row := ParamRow{Name: FormatParamName(k)}
		switch v := params[k].(type) {
		case map[string]any:
			if value, ok := v["value"]; ok {
				row.Value = formatValue(value)
				if unit, ok := v["unit"]; ok {
					row.Unit = formatValue(unit)
				}
			} else {
				row.Value = formatValue(v)
			}
		default:
			row.Value = formatValue(v)
		}
		return row
	})
}

// FormatRating renders a 1..10 rating of telemetry data as "n/10"
func FormatRating(data map[string]any, key string) string {
	v, ok := data[key].(float64)
	if !ok || v == 0 {
		return Missing + "/10"
	}
	return formatValue(v) + "/10"
}

// FormatTemp renders a temperature value of a weather map, "-" if missing
func FormatTemp(data map[string]any, key string) string {
	v, ok := data[key].(float64)
	if !ok {
		return Missing
	}
	return decimal.NewFromFloat(v).String() + "°C"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case float64:
		return decimal.NewFromFloat(x).String()
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
