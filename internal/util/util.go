package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FormatBytes formats bytes into human readable format.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	const units = "KMGTPEZY"
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < len(units)-1; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), units[exp])
}

// FormatDuration formats duration into human readable format (e.g., "1h30m", "5m10s", "45s").
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	}

	if duration < time.Hour {
		m := int(duration.Minutes())
		s := int(duration.Seconds()) % 60

		return fmt.Sprintf("%dm%ds", m, s)
	}

	h := int(duration.Hours())
	m := int(duration.Minutes()) % 60

	return fmt.Sprintf("%dh%dm", h, m)
}

// ParseDuration extends time.ParseDuration with a day unit, so "7d" and
// "1d12h" are accepted alongside "15m" or "90s". Durations must be positive.
func ParseDuration(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, errors.New("empty duration")
	}

	var days time.Duration
	if idx := strings.IndexByte(raw, 'd'); idx >= 0 {
		count, err := strconv.Atoi(raw[:idx])
		if err != nil {
			return 0, errors.Wrapf(err, "invalid day count in %q", value)
		}
		days = time.Duration(count) * 24 * time.Hour
		raw = raw[idx+1:]
	}

	var rest time.Duration
	if raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid duration %q", value)
		}
		rest = parsed
	}

	total := days + rest
	if total <= 0 {
		return 0, errors.Errorf("duration %q must be positive", value)
	}

	return total, nil
}
