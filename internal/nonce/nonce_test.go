package nonce

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestNextBeforeSeedReturnsErrNotSeeded(t *testing.T) {
	m := New(nil, common.Address{})
	_, err := m.Next()
	assert.ErrorIs(t, err, ErrNotSeeded)
}

func TestCurrentBeforeSeedReturnsErrNotSeeded(t *testing.T) {
	m := New(nil, common.Address{})
	_, err := m.Current()
	assert.ErrorIs(t, err, ErrNotSeeded)
}

func TestResetBeforeSeedReturnsErrNotSeeded(t *testing.T) {
	m := New(nil, common.Address{})
	err := m.Reset(nil)
	assert.ErrorIs(t, err, ErrNotSeeded)
}

func manuallySeed(m *Manager, start uint64) {
	m.seeded.Store(true)
	m.counter.Store(start)
}

func TestNextIncrementsMonotonically(t *testing.T) {
	m := New(nil, common.Address{})
	manuallySeed(m, 5)

	n1, err := m.Next()
	assert.NoError(t, err)
	assert.Equal(t, uint64(5), n1)

	n2, err := m.Next()
	assert.NoError(t, err)
	assert.Equal(t, uint64(6), n2)

	current, err := m.Current()
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), current)
}

func TestNextConcurrentCallersGetDistinctValues(t *testing.T) {
	m := New(nil, common.Address{})
	manuallySeed(m, 0)

	const n = 200
	seen := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := m.Next()
			assert.NoError(t, err)
			seen[i] = v
		}(i)
	}
	wg.Wait()

	unique := make(map[uint64]struct{}, n)
	for _, v := range seen {
		unique[v] = struct{}{}
	}
	assert.Len(t, unique, n)
}
