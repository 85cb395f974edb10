package utils

import "fmt"

// ConvertBytesToHumanReadable formats a byte count with a binary-unit
// suffix (KB, MB, GB, ...), one decimal place above 1 KiB.
func ConvertBytesToHumanReadable(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	value := float64(bytes)
	suffix := 0
	for value >= unit && suffix < 6 {
		value /= unit
		suffix++
	}
	return fmt.Sprintf("%.1f %cB", value, "KMGTPE"[suffix-1])
}
