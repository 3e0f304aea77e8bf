package session

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeqGeneratorStartsAtOneAndIncrements(t *testing.T) {
	var g seqGenerator
	assert.Equal(t, int64(1), g.next())
	assert.Equal(t, int64(2), g.next())
}

func TestSeqGeneratorWrapsAtMaxInt64(t *testing.T) {
	g := seqGenerator{counter: math.MaxInt64 - 1}
	assert.Equal(t, int64(math.MaxInt64), g.next())
	assert.Equal(t, int64(1), g.next())
}

func TestPendingTableDrainClearsAndReturnsAllEntries(t *testing.T) {
	table := newPendingTable()
	table.insert(1, &pendingEntry{})
	table.insert(2, &pendingEntry{})

	drained := table.drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, table.len())

	_, ok := table.remove(1)
	assert.False(t, ok)
}
