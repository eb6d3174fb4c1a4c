package botdetect

// overrideConfidence is the floor a not-bot remote verdict must clear
// before it can displace the heuristic verdict. A bot verdict only needs
// to be more confident than the local one.
const overrideConfidence = 0.8

// Resolution is the final outcome for a session.
type Resolution struct {
	Verdict    Verdict
	Confidence float64
	Overridden bool
}

// Resolve combines the heuristic score with an optional remote verdict.
// The remote verdict wins only when it is decisive (flags a bot, or clears
// the override floor) and is more confident than the local heuristic.
func Resolve(local ScoreResult, remote *RemoteVerdict) Resolution {
	res := Resolution{
		Verdict:    VerdictFor(local),
		Confidence: local.Confidence,
	}

	if remote == nil {
		return res
	}
	if !remote.IsBot && remote.Confidence <= overrideConfidence {
		return res
	}
	if remote.Confidence <= local.Confidence {
		return res
	}

	res.Overridden = true
	res.Confidence = clamp01(remote.Confidence)
	if remote.IsBot {
		res.Verdict = VerdictBot
	} else {
		res.Verdict = VerdictHuman
	}
	return res
}
