package botdetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// MinTracePoints is the minimum number of mouse trace points required
// before the external classifier is consulted. Short traces carry too
// little shape to classify.
const MinTracePoints = 5

const defaultBotdScore = 0.1

// MousePoint is one sampled cursor position.
type MousePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// Trace is the classifier request payload.
type Trace struct {
	MouseTrace        []MousePoint `json:"mouse_trace"`
	NetworkTimestamps []int64      `json:"network_timestamps"`
	BotdScore         float64      `json:"botd_score"`
}

// RemoteVerdict is the external classifier's opinion of a session.
type RemoteVerdict struct {
	IsBot      bool    `json:"is_bot"`
	Confidence float64 `json:"confidence"`
}

// Classifier consults an external model about a session's mouse trace.
// Classify returns nil, nil when the trace is too short to be useful.
type Classifier interface {
	Classify(ctx context.Context, trace Trace) (*RemoteVerdict, error)
}

// BuildTrace extracts the classifier payload from raw events. Mouse
// coordinates come from mousemove event data; every event contributes
// a network timestamp. The botd score comes from the session's signals
// when the client reported one, defaulting otherwise.
func BuildTrace(events []*Event, signals Signals) Trace {
	trace := Trace{BotdScore: defaultBotdScore}
	if signals.BotdScore != nil && *signals.BotdScore > 0 {
		trace.BotdScore = *signals.BotdScore
	}
	for _, ev := range events {
		trace.NetworkTimestamps = append(trace.NetworkTimestamps, ev.Timestamp.UnixMilli())
		if ev.Type != EventMouseMove {
			continue
		}
		x, okX := numeric(ev.Data["x"])
		y, okY := numeric(ev.Data["y"])
		if !okX || !okY {
			continue
		}
		trace.MouseTrace = append(trace.MouseTrace, MousePoint{
			X: x,
			Y: y,
			T: ev.Timestamp.UnixMilli(),
		})
	}
	return trace
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// HTTPClassifier calls a remote classification service over HTTP.
type HTTPClassifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPClassifier creates a classifier client. url is the full endpoint
// the trace is POSTed to.
func NewHTTPClassifier(url string, timeout time.Duration, logger *slog.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Classify sends the trace to the remote service. Traces shorter than
// MinTracePoints are skipped without a network call.
func (h *HTTPClassifier) Classify(ctx context.Context, trace Trace) (*RemoteVerdict, error) {
	if len(trace.MouseTrace) <= MinTracePoints {
		return nil, nil
	}

	body, err := json.Marshal(trace)
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("classifier returned %d", resp.StatusCode)
	}

	var verdict RemoteVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	return &verdict, nil
}
