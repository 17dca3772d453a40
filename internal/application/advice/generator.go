package advice

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Metric thresholds the rule-based generator reasons about, expressed in
// the same units the tracking clients report
var (
	calorieTarget = decimal.NewFromInt(2000)
	proteinFloor  = decimal.NewFromInt(50)
	stepsFloor    = decimal.NewFromInt(7000)
	waterFloor    = decimal.NewFromFloat(1.5)
)

// RuleBasedGenerator builds advice from weekly metric averages without an
// external model. It stands in wherever a model endpoint is not configured
// and keeps the resolve path fully local.
func RuleBasedGenerator(inputs []SignatureInput) Generator {
	return func(ctx context.Context) (string, error) {
		byName := make(map[string]decimal.Decimal, len(inputs))
		for _, in := range inputs {
			byName[in.Name] = in.Value
		}

		var lines []string
		if v, ok := byName["calories_avg"]; ok {
			switch {
			case v.GreaterThan(calorieTarget.Mul(decimal.NewFromFloat(1.15))):
				lines = append(lines, fmt.Sprintf("Your average intake of %s kcal is well above the %s kcal target; favor lighter dinners this week.", v.StringFixed(0), calorieTarget.StringFixed(0)))
			case v.LessThan(calorieTarget.Mul(decimal.NewFromFloat(0.85))):
				lines = append(lines, fmt.Sprintf("Your average intake of %s kcal is below target; add a balanced snack between meals.", v.StringFixed(0)))
			default:
				lines = append(lines, "Your calorie intake is on target, keep it up.")
			}
		}
		if v, ok := byName["protein_avg"]; ok && v.LessThan(proteinFloor) {
			lines = append(lines, fmt.Sprintf("Protein averaged %s g per day; aim for at least %s g with legumes, dairy or lean meat.", v.StringFixed(0), proteinFloor.StringFixed(0)))
		}
		if v, ok := byName["steps_avg"]; ok && v.LessThan(stepsFloor) {
			lines = append(lines, fmt.Sprintf("Daily steps averaged %s; a short walk after lunch would close the gap to %s.", v.StringFixed(0), stepsFloor.StringFixed(0)))
		}
		if v, ok := byName["water_avg"]; ok && v.LessThan(waterFloor) {
			lines = append(lines, fmt.Sprintf("Hydration averaged %s L per day; keep a bottle at your desk and target %s L.", v.StringFixed(1), waterFloor.StringFixed(1)))
		}

		if len(lines) == 0 {
			lines = append(lines, "All tracked metrics look balanced this week. Maintain your current routine.")
		}
		return strings.Join(lines, " "), nil
	}
}
