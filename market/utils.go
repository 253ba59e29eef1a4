package market

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the bar period in seconds.
type Frequency int32

const (
	Minute1  Frequency = 60
	Minute5  Frequency = 300
	Minute15 Frequency = 900
	Minute30 Frequency = 1800
	Hour1    Frequency = 3600
	Hour4    Frequency = 14400
	Daily    Frequency = 86400
)

func (f Frequency) Duration() time.Duration {
	return time.Duration(f) * time.Second
}

// Intraday reports whether bars of this frequency are shorter than a day.
func (f Frequency) Intraday() bool {
	return f > 0 && f < Daily
}

func (f Frequency) String() string {
	s, err := SecondsToTFString(int32(f))
	if err != nil {
		return fmt.Sprintf("%ds", int32(f))
	}
	return s
}

// ParseFrequency accepts the timeframe strings used in configs ("M1", "H1",
// "D1") and a few long forms ("daily", "1m").
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "1d":
		return Daily, nil
	case "1m", "minute":
		return Minute1, nil
	case "1h", "hourly":
		return Hour1, nil
	}
	sec, err := TFStringToSeconds(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return 0, err
	}
	if sec > int32(Daily) {
		return 0, fmt.Errorf("unsupported frequency %q: longer than a day", s)
	}
	return Frequency(sec), nil
}

func SecondsToTFString(sec int32) (string, error) {
	if sec <= 0 {
		return "", fmt.Errorf("invalid timeframe seconds: %d", sec)
	}

	// Minutes
	if sec < 3600 && sec%60 == 0 {
		return fmt.Sprintf("M%d", sec/60), nil
	}

	// Hours
	if sec < 86400 && sec%3600 == 0 {
		return fmt.Sprintf("H%d", sec/3600), nil
	}

	// Days
	if sec%86400 == 0 {
		days := sec / 86400
		if days == 7 {
			return "W1", nil
		}
		return fmt.Sprintf("D%d", days), nil
	}

	return "", fmt.Errorf("cannot map timeframe: %d seconds", sec)
}

func TFStringToSeconds(tf string) (int32, error) {
	switch tf {
	case "M1":
		return 60, nil
	case "M5":
		return 300, nil
	case "M15":
		return 900, nil
	case "M30":
		return 1800, nil
	case "H1":
		return 3600, nil
	case "H4":
		return 14400, nil
	case "D1":
		return 86400, nil
	case "W1":
		return 604800, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe string: %s", tf)
	}
}
