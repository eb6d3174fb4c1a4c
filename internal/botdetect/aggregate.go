package botdetect

// Aggregate folds raw events into signal counts.
//
// An empty event list yields zero-value Signals: nothing observed, so the
// scorer sees an empty ceiling and the verdict stays unknown. Once at
// least one event exists, every counter becomes present, including the
// ones that stayed at zero; a session that moved the mouse but never
// typed should be penalized for the missing keystrokes, not excused.
//
// Session duration is the span between the first and last server-assigned
// event timestamps and requires at least two events.
func Aggregate(events []*Event) Signals {
	var sig Signals
	if len(events) == 0 {
		return sig
	}

	var mouse, clicks, keys, scrolls, touches, pages int
	for _, ev := range events {
		switch ev.Type {
		case EventMouseMove:
			mouse++
		case EventClick:
			clicks++
		case EventKeyPress:
			keys++
		case EventScroll:
			scrolls++
		case EventTouchStart:
			touches++
		case EventPageView:
			pages++
		}
	}

	sig.MouseMovements = Int(mouse)
	sig.Clicks = Int(clicks)
	sig.Keystrokes = Int(keys)
	sig.ScrollEvents = Int(scrolls)
	sig.TouchEvents = Int(touches)
	sig.PageViews = Int(pages)

	if len(events) >= 2 {
		first, last := events[0].Timestamp, events[0].Timestamp
		for _, ev := range events[1:] {
			if ev.Timestamp.Before(first) {
				first = ev.Timestamp
			}
			if ev.Timestamp.After(last) {
				last = ev.Timestamp
			}
		}
		sig.SessionDurationMs = Int64(last.Sub(first).Milliseconds())
	}

	return sig
}
