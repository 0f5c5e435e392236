package core

import "fmt"

// Binary byte units.
const (
	BytesPerKB int64 = 1024
	BytesPerMB int64 = 1024 * BytesPerKB
	BytesPerGB int64 = 1024 * BytesPerMB
)

// FormatBytes renders n as "512 B", "1.50 KB", "2.00 GB" and so on.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	switch {
	case n >= BytesPerGB:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(BytesPerGB))
	case n >= BytesPerMB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(BytesPerMB))
	case n >= BytesPerKB:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(BytesPerKB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
