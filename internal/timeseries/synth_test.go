package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSynthesizer_SeriesShape(t *testing.T) {
	end := time.Unix(1_700_000_000, 0)
	s := NewSynthesizer(time.Hour, 10*time.Second, 7)

	series := s.Series(end)
	require.Len(t, series, 360)
	require.InDelta(t, float64(end.Unix()-3600), series[0].Timestamp, 1e-6)
	require.Less(t, series[len(series)-1].Timestamp, float64(end.Unix()))

	for i, v := range series {
		if i > 0 {
			require.Greater(t, v.Timestamp, series[i-1].Timestamp)
		}
		require.InDelta(t, 70, v.HeartRate, 13)
		require.InDelta(t, 120, v.SystolicPressure, 19)
		require.InDelta(t, 80, v.DiastolicPressure, 13)
		require.InDelta(t, 97, v.OxygenSaturation, 3)
		require.InDelta(t, 16, v.RespirationRate, 4)
	}
}

func TestSynthesizer_SeedIsDeterministic(t *testing.T) {
	end := time.Unix(1_700_000_000, 0)
	a := NewSynthesizer(10*time.Minute, 10*time.Second, 42).Series(end)
	b := NewSynthesizer(10*time.Minute, 10*time.Second, 42).Series(end)
	require.Equal(t, a, b)
}

func TestSynthesizer_ZeroSpan(t *testing.T) {
	require.Empty(t, NewSynthesizer(0, time.Second, 1).Series(time.Now()))
}
