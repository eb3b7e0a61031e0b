package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmitRunsInline(t *testing.T) {
	p := NewPool(4)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		p.Submit(func() {
			order = append(order, i)
		})
	}
	p.Sync(3)

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestPoolThreadNumber(t *testing.T) {
	assert.Equal(t, 4, NewPool(4).ThreadNumber())
	assert.Equal(t, 1, NewPool(0).ThreadNumber())
	assert.Equal(t, 1, NewPool(-3).ThreadNumber())
}

func TestPartitionFormula(t *testing.T) {
	// Boundary placement must match the original pool math exactly:
	// gap = count/total, last worker absorbs the remainder.
	assert.Equal(t, 0, Start(10, 3, 0))
	assert.Equal(t, 3, End(10, 3, 0))
	assert.Equal(t, 3, Start(10, 3, 1))
	assert.Equal(t, 6, End(10, 3, 1))
	assert.Equal(t, 6, Start(10, 3, 2))
	assert.Equal(t, 10, End(10, 3, 2))
}

func TestPartitionCoverage(t *testing.T) {
	// The union of all worker slices must cover [0, count) exactly,
	// with no gaps and no overlaps.
	for _, count := range []int{0, 1, 2, 7, 10, 100, 101, 1023} {
		for _, total := range []int{1, 2, 3, 4, 7, 16} {
			covered := make([]int, count)
			for id := 0; id < total; id++ {
				start, end := Start(count, total, id), End(count, total, id)
				require.LessOrEqual(t, start, end, "count=%d total=%d id=%d", count, total, id)
				for i := start; i < end; i++ {
					covered[i]++
				}
			}
			for i, c := range covered {
				require.Equal(t, 1, c, "index %d covered %d times (count=%d total=%d)", i, c, count, total)
			}
		}
	}
}
