package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

func TruncateString(str string, num int) string {
	r := []rune(str)
	if len(r) <= num {
		return str
	}
	if num <= 3 {
		return string(r[:num])
	}
	return string(r[0:num-3]) + "..."
}

// ShortAddress keeps the first six and last four characters.
func ShortAddress(addr string) string {
	if len(addr) <= 13 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func AddCommas(s string) string {
	if len(s) == 0 {
		return s
	}
	parts := strings.Split(s, ".")
	integerPart := parts[0]
	sign := ""
	if strings.HasPrefix(integerPart, "-") {
		sign = "-"
		integerPart = integerPart[1:]
	}

	n := len(integerPart)
	if n <= 3 {
		return s
	}

	var result strings.Builder
	result.WriteString(sign)
	remainder := n % 3
	if remainder > 0 {
		result.WriteString(integerPart[:remainder])
		result.WriteString(",")
	}
	for i := remainder; i < n; i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(integerPart[i : i+3])
	}

	if len(parts) > 1 {
		result.WriteString(".")
		result.WriteString(parts[1])
	}
	return result.String()
}

func FormatFloat(f float64, decimals int) string {
	return AddCommas(fmt.Sprintf("%.*f", decimals, f))
}

// FormatUSD renders a dollar amount with thousands separators.
func FormatUSD(f float64, decimals int) string {
	if f < 0 {
		return "-$" + FormatFloat(-f, decimals)
	}
	return "$" + FormatFloat(f, decimals)
}

// FormatPrice picks more decimals for sub-dollar quotes.
func FormatPrice(f float64) string {
	switch {
	case f == 0:
		return "$0.00"
	case math.Abs(f) < 0.01:
		return FormatUSD(f, 6)
	case math.Abs(f) < 1:
		return FormatUSD(f, 4)
	default:
		return FormatUSD(f, 2)
	}
}

// FormatPercent renders a signed percentage change.
func FormatPercent(p float64) string {
	if p >= 0 {
		return fmt.Sprintf("+%.2f%%", p)
	}
	return fmt.Sprintf("%.2f%%", p)
}

// TimeAgo describes how long before now t was.
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
