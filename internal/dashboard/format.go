package dashboard

import (
	"fmt"
	"time"
)

// formatBytes renders a byte count with a binary-unit suffix.
func formatBytes(n float64) string {
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	idx := 0
	for n >= 1024 && idx < len(units)-1 {
		n /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%.0f %s", n, units[idx])
	}
	return fmt.Sprintf("%.2f %s", n, units[idx])
}

// formatHashrate renders hashes per second with a metric suffix.
func formatHashrate(h float64) string {
	units := []string{"H/s", "kH/s", "MH/s", "GH/s", "TH/s", "PH/s"}
	idx := 0
	for h >= 1000 && idx < len(units)-1 {
		h /= 1000
		idx++
	}
	return fmt.Sprintf("%.2f %s", h, units[idx])
}

// formatUptime renders a second count as days, hours, and minutes,
// dropping leading zero units.
func formatUptime(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// formatPing renders a peer ping time in milliseconds.
func formatPing(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f ms", seconds*1000)
}
