package botdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveNoRemoteKeepsLocal(t *testing.T) {
	local := ScoreResult{Score: 58, MaxScore: 65, Confidence: 58.0 / 65.0}
	res := Resolve(local, nil)

	assert.Equal(t, VerdictHuman, res.Verdict)
	assert.Equal(t, local.Confidence, res.Confidence)
	assert.False(t, res.Overridden)
}

func TestResolveConfidentBotOverrides(t *testing.T) {
	local := ScoreResult{Score: 58, MaxScore: 65, Confidence: 0.89}
	res := Resolve(local, &RemoteVerdict{IsBot: true, Confidence: 0.95})

	assert.Equal(t, VerdictBot, res.Verdict)
	assert.Equal(t, 0.95, res.Confidence)
	assert.True(t, res.Overridden)
}

func TestResolveLessConfidentRemoteLoses(t *testing.T) {
	local := ScoreResult{Score: 58, MaxScore: 65, Confidence: 0.89}
	res := Resolve(local, &RemoteVerdict{IsBot: true, Confidence: 0.60})

	assert.Equal(t, VerdictHuman, res.Verdict)
	assert.False(t, res.Overridden)
}

func TestResolveWeakNotBotRemoteIgnored(t *testing.T) {
	// A not-bot remote verdict below the override floor never displaces
	// the heuristic, even when it is more confident than the local score.
	local := ScoreResult{Score: 20, MaxScore: 65, Confidence: 0.31}
	res := Resolve(local, &RemoteVerdict{IsBot: false, Confidence: 0.75})

	assert.Equal(t, VerdictBot, res.Verdict)
	assert.Equal(t, local.Confidence, res.Confidence)
	assert.False(t, res.Overridden)
}

func TestResolveStrongNotBotOverrides(t *testing.T) {
	local := ScoreResult{Score: 20, MaxScore: 65, Confidence: 0.31}
	res := Resolve(local, &RemoteVerdict{IsBot: false, Confidence: 0.92})

	assert.Equal(t, VerdictHuman, res.Verdict)
	assert.Equal(t, 0.92, res.Confidence)
	assert.True(t, res.Overridden)
}

func TestResolveOverrideConfidenceClamped(t *testing.T) {
	local := ScoreResult{Score: 10, MaxScore: 65, Confidence: 0.15}
	res := Resolve(local, &RemoteVerdict{IsBot: true, Confidence: 1.7})

	assert.Equal(t, VerdictBot, res.Verdict)
	assert.Equal(t, 1.0, res.Confidence)
}
