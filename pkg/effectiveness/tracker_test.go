package effectiveness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seocore/seocore/pkg/models"
)

func TestEffectivenessFromEffect(t *testing.T) {
	assert.Equal(t, models.EffectivenessEffective, effectivenessFromEffect("positive"))
	assert.Equal(t, models.EffectivenessNegative, effectivenessFromEffect("negative"))
	assert.Equal(t, models.EffectivenessPartial, effectivenessFromEffect("neutral"))
	assert.Equal(t, models.EffectivenessPartial, effectivenessFromEffect("unexpected"))
}

func TestScoreFromEffect(t *testing.T) {
	assert.Equal(t, 1.0, scoreFromEffect("positive"))
	assert.Equal(t, -1.0, scoreFromEffect("negative"))
	assert.Equal(t, 0.0, scoreFromEffect("neutral"))
}

func TestClassifyFallsBackToClickDeltaWithoutLLM(t *testing.T) {
	tracker := &Tracker{}
	effect, factors, score := tracker.classify(t.Context(), map[string]any{"clicks": 5.0}, map[string]any{"clicks": 10.0})
	assert.Equal(t, "positive", effect)
	assert.NotEmpty(t, factors)
	assert.Equal(t, 1.0, score)

	effect, _, score = tracker.classify(t.Context(), map[string]any{"clicks": 10.0}, map[string]any{"clicks": 2.0})
	assert.Equal(t, "negative", effect)
	assert.Equal(t, -1.0, score)
}
