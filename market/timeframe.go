package market

import "fmt"

// TFSeconds converts a timeframe string (M1, M5, H1, D1, ...) to seconds.
func TFSeconds(tf string) (int64, error) {
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
	default:
		return 0, fmt.Errorf("unsupported timeframe string: %s", tf)
	}
}

// TFString converts seconds to the canonical timeframe string.
func TFString(sec int64) (string, error) {
	if sec <= 0 {
		return "", fmt.Errorf("invalid timeframe seconds: %d", sec)
	}

	if sec < 3600 && sec%60 == 0 {
		return fmt.Sprintf("M%d", sec/60), nil
	}
	if sec < 86400 && sec%3600 == 0 {
		return fmt.Sprintf("H%d", sec/3600), nil
	}
	if sec%86400 == 0 {
		return fmt.Sprintf("D%d", sec/86400), nil
	}

	return "", fmt.Errorf("cannot map timeframe: %d seconds", sec)
}
