package outcome

import (
	"fmt"
	"strings"
	"time"
)

// ChatWindow reports whether matched users may still communicate and how long
// remains until the round's closing timestamp.
type ChatWindow struct {
	Allowed   bool
	Remaining time.Duration
}

// EvaluateChatWindow closes the window at the exact finish instant: a nil or
// passed finish means chat is over, identical to ROUND_FINISHED for chat
// purposes even before the display status re-derives.
func EvaluateChatWindow(finish *time.Time, now time.Time) ChatWindow {
	if finish == nil || !now.Before(*finish) {
		return ChatWindow{}
	}
	return ChatWindow{Allowed: true, Remaining: finish.Sub(now)}
}

// FormatCountdown renders a descending countdown in days/hours/minutes/seconds
// with Korean unit suffixes, omitting zero units: "2일 3시간 10분 5초".
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d일", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d시간", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d분", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%d초", seconds))
	}
	if len(parts) == 0 {
		return "0초"
	}
	return strings.Join(parts, " ")
}
