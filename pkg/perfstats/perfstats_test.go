package perfstats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUpdateMovingAverage(t *testing.T) {
	avg := int64(0)
	UpdateMovingAverage(&avg, 1000)
	require.Equal(t, int64(1000), avg)
	UpdateMovingAverage(&avg, 2000)
	require.Equal(t, int64((1000*15+2000)/16), avg)
}

func TestTimeAccumulator(t *testing.T) {
	a := TimeAccumulator{}
	require.Equal(t, time.Duration(0), a.Average())
	a.AddSample(10 * time.Millisecond)
	a.AddSample(30 * time.Millisecond)
	require.Equal(t, int64(2), a.Samples)
	require.Equal(t, 20*time.Millisecond, a.Average())
	a.Reset()
	require.Equal(t, int64(0), a.Samples)
	require.Equal(t, time.Duration(0), a.Average())
}
