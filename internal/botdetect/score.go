package botdetect

// Score weights per signal. The ceiling for a session is the sum of the
// weights of the signals actually observed, so confidence is always
// relative to what the client reported.
const (
	weightMouse       = 20.0
	weightClicks      = 15.0
	weightKeystrokes  = 15.0
	weightScroll      = 10.0
	weightDuration    = 15.0
	weightBehavior    = 15.0
	weightFingerprint = 5.0
	weightIPRep       = 5.0
)

// Verdict confidence thresholds.
const (
	humanThreshold      = 0.70
	suspiciousThreshold = 0.40
	botThreshold        = 0.20
)

// ScoreResult is the heuristic scoring outcome for one session.
type ScoreResult struct {
	Score      float64
	MaxScore   float64
	Confidence float64
}

// Score applies the tiered heuristics to the observed signals. Absent
// signals contribute neither points nor ceiling. A session with no
// observed signals scores Confidence 0.
func Score(sig Signals) ScoreResult {
	var score, maxScore float64

	if sig.MouseMovements != nil {
		maxScore += weightMouse
		switch n := *sig.MouseMovements; {
		case n > 50:
			score += 20
		case n > 20:
			score += 15
		case n > 5:
			score += 10
		}
	}

	if sig.Clicks != nil {
		maxScore += weightClicks
		switch n := *sig.Clicks; {
		case n > 5 && n < 100:
			score += 15
		case n > 0:
			score += 8
		}
	}

	if sig.Keystrokes != nil {
		maxScore += weightKeystrokes
		switch n := *sig.Keystrokes; {
		case n > 10:
			score += 15
		case n > 0:
			score += 10
		}
	}

	if sig.ScrollEvents != nil {
		maxScore += weightScroll
		switch n := *sig.ScrollEvents; {
		case n > 3:
			score += 10
		case n > 0:
			score += 5
		}
	}

	if sig.SessionDurationMs != nil {
		maxScore += weightDuration
		switch ms := *sig.SessionDurationMs; {
		case ms > 30000:
			score += 15
		case ms > 10000:
			score += 10
		case ms > 3000:
			score += 5
		}
	}

	if sig.BehaviorScore != nil {
		maxScore += weightBehavior
		score += clamp01(*sig.BehaviorScore) * weightBehavior
	}

	if sig.FingerprintScore != nil {
		maxScore += weightFingerprint
		score += clamp01(*sig.FingerprintScore) * weightFingerprint
	}

	if sig.IPReputation != nil {
		maxScore += weightIPRep
		score += clamp01(*sig.IPReputation) * weightIPRep
	}

	result := ScoreResult{Score: score, MaxScore: maxScore}
	if maxScore > 0 {
		result.Confidence = score / maxScore
	}
	return result
}

// VerdictFor maps a confidence to its verdict band. A session with no
// score ceiling is always unknown.
func VerdictFor(r ScoreResult) Verdict {
	if r.MaxScore == 0 {
		return VerdictUnknown
	}
	switch {
	case r.Confidence >= humanThreshold:
		return VerdictHuman
	case r.Confidence >= suspiciousThreshold:
		return VerdictSuspicious
	case r.Confidence >= botThreshold:
		return VerdictBot
	default:
		return VerdictUnknown
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
