package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDate_DaysUntil(t *testing.T) {
	start := NewDate(2025, time.June, 1)

	assert.Equal(t, 2, start.DaysUntil(NewDate(2025, time.June, 3)))
	assert.Equal(t, 0, start.DaysUntil(start))
	assert.Equal(t, -2, start.DaysUntil(NewDate(2025, time.May, 30)))
	assert.Equal(t, 29, NewDate(2024, time.February, 1).DaysUntil(NewDate(2024, time.March, 1)))
	assert.Equal(t, 2912656, start.DaysUntil(NewDate(9999, time.December, 31)), "no Duration saturation")
}
