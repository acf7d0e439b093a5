package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a MM:SS duration. Minutes may exceed 59; seconds may not.
func ParseClock(text string) (time.Duration, error) {
	minutesText, secondsText, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, text)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(minutesText))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, text)
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(secondsText))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, text)
	}
	if minutes < 0 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, text)
	}
	return time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}

// FormatClock renders d as MM:SS, truncating to whole seconds.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
