package timeseries

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/HerbHall/wardwatch/pkg/models"
)

// Synthesizer generates plausible demonstration history: slow sinusoidal
// drift around resting adult values plus uniform noise.
type Synthesizer struct {
	Span time.Duration
	Step time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthesizer returns a generator covering span at the given step. The
// seed fixes the noise sequence.
func NewSynthesizer(span, step time.Duration, seed uint64) *Synthesizer {
	return &Synthesizer{
		Span: span,
		Step: step,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Series returns samples from end-Span up to (excluding) end, oldest first.
func (s *Synthesizer) Series(end time.Time) []models.VitalSample {
	if s.Span <= 0 || s.Step <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	span := s.Span.Seconds()
	step := s.Step.Seconds()
	base := float64(end.UnixNano()) / 1e9
	out := make([]models.VitalSample, 0, int(span/step)+1)
	for i := 0.0; i < span; i += step {
		out = append(out, models.VitalSample{
			Timestamp:         math.Round((base-span+i)*1e5) / 1e5,
			HeartRate:         s.wave(70, 10, i/3600, 6),
			SystolicPressure:  s.wave(120, 15, i/7200, 8),
			DiastolicPressure: s.wave(80, 10, i/7200, 6),
			OxygenSaturation:  s.wave(97, 2, i/10800, 1),
			RespirationRate:   s.wave(16, 3, i/5400, 2),
		})
	}
	return out
}

// wave is center + amplitude*sin(phase) + noise in [-jitter/2, jitter/2).
func (s *Synthesizer) wave(center, amplitude, phase, jitter float64) int {
	return int(math.Round(center + math.Sin(phase)*amplitude + (s.rng.Float64()-0.5)*jitter))
}
