package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	s := scan("200 г курицы и 300 ккал")
	require.Len(t, s.kcal, 1)
	assert.Equal(t, 300.0, s.kcal[0].value)
	require.Len(t, s.weights, 1)
	assert.Equal(t, 200.0, s.weights[0].value)

	s = scan("2 года назад")
	assert.Empty(t, s.weights)

	s = scan("1/2 пиццы")
	assert.Empty(t, s.weights)
	assert.True(t, s.bareFraction)

	s = scan("ккал нет, 3 lemons")
	assert.Empty(t, s.kcal)
	assert.Empty(t, s.weights)
}

func TestScan_Density(t *testing.T) {
	s := scan("творог 180 г, 120 ккал/100г")
	assert.Empty(t, s.kcal)
	require.NotNil(t, s.density)
	assert.Equal(t, 120.0, s.density.value)
	require.Len(t, s.weights, 1)
	assert.Equal(t, 180.0, s.weights[0].value)
}

func TestFoodName(t *testing.T) {
	lower := "200 г курицы!"
	s := scan(lower)
	require.Len(t, s.weights, 1)
	assert.Equal(t, "курицы", foodName(lower, s.weights[0].span))
}
