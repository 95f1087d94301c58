package replay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rewardTransition(r float64) Transition {
	return NewTransition([]float64{r}, []float64{0, 0}, true, []float64{r}, r)
}

func TestNewBufferRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewBuffer(0, nil)
	require.Error(t, err)
}

func TestBufferEvictsOldestInInsertionOrder(t *testing.T) {
	for _, capacity := range []int{1, 2, 5, 50} {
		for _, extra := range []int{0, 1, 3, 7} {
			buf, err := NewBuffer(capacity, nil)
			require.NoError(t, err)

			total := capacity + extra
			for i := 0; i < total; i++ {
				buf.Push(rewardTransition(float64(i)))
			}

			require.Equal(t, capacity, buf.Len(), "capacity=%d extra=%d", capacity, extra)
			entries := buf.Entries()
			for i, e := range entries {
				assert.Equal(t, float64(extra+i), e.Reward, "capacity=%d extra=%d index=%d", capacity, extra, i)
			}
			assert.Equal(t, total, buf.Pushed())
		}
	}
}

func TestSampleDrawsOnlyStoredEntries(t *testing.T) {
	buf, err := NewBuffer(3, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		buf.Push(rewardTransition(float64(i)))
	}

	batch, err := buf.Sample(200)
	require.NoError(t, err)
	require.Len(t, batch, 200)

	seen := map[float64]bool{}
	for _, tr := range batch {
		assert.Contains(t, []float64{2, 3, 4}, tr.Reward)
		seen[tr.Reward] = true
	}
	assert.Len(t, seen, 3)
}

func TestSampleEmptyBuffer(t *testing.T) {
	buf, err := NewBuffer(2, nil)
	require.NoError(t, err)
	_, err = buf.Sample(1)
	require.Error(t, err)
}

func TestSampleReturnsCopies(t *testing.T) {
	buf, err := NewBuffer(1, nil)
	require.NoError(t, err)
	buf.Push(rewardTransition(1))

	batch, err := buf.Sample(1)
	require.NoError(t, err)
	batch[0].State[0] = 99

	again, err := buf.Sample(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0].State[0])
}

func TestMeanRewardAndMask(t *testing.T) {
	buf, err := NewBuffer(4, nil)
	require.NoError(t, err)
	assert.Zero(t, buf.MeanReward())

	buf.Push(rewardTransition(1))
	buf.Push(rewardTransition(-3))
	assert.InDelta(t, -1.0, buf.MeanReward(), 1e-12)

	assert.Zero(t, rewardTransition(0).Mask())
	assert.Equal(t, 1.0, NewTransition(nil, nil, false, nil, 0).Mask())
}
