package validate

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterEnforcesWindow(t *testing.T) {
	clock := quartz.NewMock(t)
	rl := NewRateLimiter(clock)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow(CategoryRoom), "message %d within limit", i)
	}
	assert.False(t, rl.Allow(CategoryRoom), "sixth room message in one second")

	// The window slides: a second later the budget is back.
	clock.Advance(time.Second + time.Millisecond)
	assert.True(t, rl.Allow(CategoryRoom))
}

func TestRateLimiterCategoriesAreIndependent(t *testing.T) {
	clock := quartz.NewMock(t)
	rl := NewRateLimiter(clock)

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow(CategoryRoom))
	}
	assert.False(t, rl.Allow(CategoryRoom))
	assert.True(t, rl.Allow(CategoryGame), "game budget untouched by room spend")
}

func TestRateLimiterGameBudget(t *testing.T) {
	clock := quartz.NewMock(t)
	rl := NewRateLimiter(clock)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow(CategoryGame))
	}
	assert.False(t, rl.Allow(CategoryGame))
}

func TestRateLimiterUnknownCategoryAllowed(t *testing.T) {
	clock := quartz.NewMock(t)
	rl := NewRateLimiter(clock)
	assert.True(t, rl.Allow(Category("mystery")))
}
