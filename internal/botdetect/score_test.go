package botdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreNoSignalsIsUnknown(t *testing.T) {
	r := Score(Signals{})
	assert.Equal(t, 0.0, r.MaxScore)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, VerdictUnknown, VerdictFor(r))
}

func TestScoreHumanSession(t *testing.T) {
	sig := Signals{
		MouseMovements:    Int(60),
		Clicks:            Int(3),
		Keystrokes:        Int(12),
		SessionDurationMs: Int64(45000),
	}

	r := Score(sig)
	assert.Equal(t, 65.0, r.MaxScore)
	assert.Equal(t, 58.0, r.Score)
	assert.InDelta(t, 0.892, r.Confidence, 0.001)
	assert.Equal(t, VerdictHuman, VerdictFor(r))
}

func TestScoreMouseTiers(t *testing.T) {
	tests := []struct {
		moves int
		score float64
	}{
		{0, 0}, {5, 0}, {6, 10}, {20, 10}, {21, 15}, {50, 15}, {51, 20}, {500, 20},
	}
	for _, tc := range tests {
		r := Score(Signals{MouseMovements: Int(tc.moves)})
		assert.Equal(t, tc.score, r.Score, "moves=%d", tc.moves)
		assert.Equal(t, 20.0, r.MaxScore, "moves=%d", tc.moves)
	}
}

func TestScoreClickTiers(t *testing.T) {
	tests := []struct {
		clicks int
		score  float64
	}{
		{0, 0}, {1, 8}, {5, 8}, {6, 15}, {99, 15},
		// Implausibly many clicks drop back to the low tier.
		{100, 8}, {1000, 8},
	}
	for _, tc := range tests {
		r := Score(Signals{Clicks: Int(tc.clicks)})
		assert.Equal(t, tc.score, r.Score, "clicks=%d", tc.clicks)
	}
}

func TestScoreKeystrokeTiers(t *testing.T) {
	tests := []struct {
		keys  int
		score float64
	}{
		{0, 0}, {1, 10}, {10, 10}, {11, 15},
	}
	for _, tc := range tests {
		r := Score(Signals{Keystrokes: Int(tc.keys)})
		assert.Equal(t, tc.score, r.Score, "keys=%d", tc.keys)
	}
}

func TestScoreScrollTiers(t *testing.T) {
	tests := []struct {
		scrolls int
		score   float64
	}{
		{0, 0}, {1, 5}, {3, 5}, {4, 10},
	}
	for _, tc := range tests {
		r := Score(Signals{ScrollEvents: Int(tc.scrolls)})
		assert.Equal(t, tc.score, r.Score, "scrolls=%d", tc.scrolls)
	}
}

func TestScoreDurationTiers(t *testing.T) {
	tests := []struct {
		ms    int64
		score float64
	}{
		{0, 0}, {3000, 0}, {3001, 5}, {10000, 5}, {10001, 10}, {30000, 10}, {30001, 15},
	}
	for _, tc := range tests {
		r := Score(Signals{SessionDurationMs: Int64(tc.ms)})
		assert.Equal(t, tc.score, r.Score, "ms=%d", tc.ms)
	}
}

func TestScoreFractionalSignalsAreClamped(t *testing.T) {
	r := Score(Signals{BehaviorScore: Float(1.5), FingerprintScore: Float(-0.3), IPReputation: Float(0.5)})
	assert.Equal(t, 25.0, r.MaxScore)
	assert.Equal(t, 15.0+0.0+2.5, r.Score)
}

func TestScoreAbsentSignalsDontCountAgainstCeiling(t *testing.T) {
	// Only behavior score reported: perfect score, full confidence.
	r := Score(Signals{BehaviorScore: Float(1.0)})
	assert.Equal(t, 15.0, r.MaxScore)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestVerdictBands(t *testing.T) {
	tests := []struct {
		confidence float64
		verdict    Verdict
	}{
		{0.95, VerdictHuman},
		{0.70, VerdictHuman},
		{0.69, VerdictSuspicious},
		{0.40, VerdictSuspicious},
		{0.39, VerdictBot},
		{0.20, VerdictBot},
		{0.19, VerdictUnknown},
		{0.0, VerdictUnknown},
	}
	for _, tc := range tests {
		r := ScoreResult{MaxScore: 100, Score: tc.confidence * 100, Confidence: tc.confidence}
		assert.Equal(t, tc.verdict, VerdictFor(r), "confidence=%v", tc.confidence)
	}
}

func TestScoreMonotonicInMouseActivity(t *testing.T) {
	// More mouse movement never lowers the score.
	prev := -1.0
	for moves := 0; moves <= 200; moves += 5 {
		r := Score(Signals{MouseMovements: Int(moves)})
		assert.GreaterOrEqual(t, r.Score, prev, "moves=%d", moves)
		prev = r.Score
	}
}
