package advice

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleBasedGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("flags high calories and low protein", func(t *testing.T) {
		inputs := []SignatureInput{
			{Name: "calories_avg", Value: decimal.NewFromInt(2600)},
			{Name: "protein_avg", Value: decimal.NewFromInt(35)},
		}
		advice, err := RuleBasedGenerator(inputs)(ctx)
		require.NoError(t, err)
		assert.Contains(t, advice, "above the 2000 kcal target")
		assert.Contains(t, advice, "Protein averaged 35 g")
	})

	t.Run("balanced metrics get the maintenance line", func(t *testing.T) {
		inputs := []SignatureInput{
			{Name: "calories_avg", Value: decimal.NewFromInt(2000)},
			{Name: "protein_avg", Value: decimal.NewFromInt(80)},
			{Name: "steps_avg", Value: decimal.NewFromInt(9000)},
		}
		advice, err := RuleBasedGenerator(inputs)(ctx)
		require.NoError(t, err)
		assert.Contains(t, advice, "on target")
	})

	t.Run("no recognized metrics", func(t *testing.T) {
		advice, err := RuleBasedGenerator(nil)(ctx)
		require.NoError(t, err)
		assert.Contains(t, advice, "Maintain your current routine")
	})
}
