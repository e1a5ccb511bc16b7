package etcd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name                  string
		page, pageSize, total int
		start, end            int
	}{
		{"first page", 1, 10, 25, 0, 10},
		{"last partial page", 3, 10, 25, 20, 25},
		{"past the end", 4, 10, 25, 25, 25},
		{"page below one", 0, 10, 25, 0, 10},
		{"empty page size", 1, 0, 25, 0, 0},
		{"no results", 1, 10, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := pageBounds(tt.page, tt.pageSize, tt.total)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestResultKeysKeepTasksApart(t *testing.T) {
	symbol := "stashed-tasks/internal/sampletasks.MathAdd"
	assert.Equal(t, "/stash/results/stashed-tasks%2Finternal%2Fsampletasks.MathAdd/r1", resultKey(symbol, "r1"))

	// A task named like the symbol's first segment must not see its results.
	assert.False(t, strings.HasPrefix(resultKey(symbol, "r1"), resultPrefix("stashed-tasks")))

	// Dot segments are kept verbatim instead of being cleaned away.
	assert.Equal(t, "/stash/results/../r1", resultKey("..", "r1"))
	assert.NotEqual(t, resultKey("a/../b", "r1"), resultKey("b", "r1"))
}

func TestScheduleKeyEscapesName(t *testing.T) {
	assert.Equal(t, "/stash/schedules/nightly%2Fadd", scheduleKey("nightly/add"))
	assert.Equal(t, "/stash/schedules/Math%20adder", scheduleKey("Math adder"))
}
