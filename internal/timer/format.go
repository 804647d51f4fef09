package timer

import (
	"fmt"
	"math"
	"time"
)

// FormatClock renders seconds as MM:SS, rounding down. Minutes are not wrapped
// into hours, so 3599 seconds is "59:59" and 3600 is "60:00".
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatUsage renders an accumulated duration as "1h 2m 3s", "2m 3s" or "3s".
func FormatUsage(d time.Duration) string {
	totalSeconds := int(d / time.Second)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
