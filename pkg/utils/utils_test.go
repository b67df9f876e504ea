package utils

import (
	"testing"
	"time"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input    string
		length   int
		expected string
	}{
		{"hello world", 5, "he..."},
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"", 5, ""},
		{"abc", 2, "ab"},
		{"abc", 3, "abc"},
		{"héllo wörld", 6, "hél..."},
	}

	for _, tt := range tests {
		result := TruncateString(tt.input, tt.length)
		if result != tt.expected {
			t.Errorf("TruncateString(%q, %d) = %q; want %q", tt.input, tt.length, result, tt.expected)
		}
	}
}

func TestShortAddress(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0x5aAe...eAed"},
		{"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", "9WzDXw...AWWM"},
		{"short", "short"},
	}
	for _, tt := range tests {
		if got := ShortAddress(tt.input); got != tt.expected {
			t.Errorf("ShortAddress(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestAddCommas(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123", "123"},
		{"1234", "1,234"},
		{"123456", "123,456"},
		{"1234567", "1,234,567"},
		{"1234.56", "1,234.56"},
		{"-1234", "-1,234"},
		{"", ""},
	}

	for _, tt := range tests {
		result := AddCommas(tt.input)
		if result != tt.expected {
			t.Errorf("AddCommas(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		decimals int
		expected string
	}{
		{1234.5678, 2, "1,234.57"},
		{1234.5, 2, "1,234.50"},
		{0, 2, "0.00"},
	}

	for _, tt := range tests {
		result := FormatFloat(tt.input, tt.decimals)
		if result != tt.expected {
			t.Errorf("FormatFloat(%f, %d) = %q; want %q", tt.input, tt.decimals, result, tt.expected)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{1234567.891, "$1,234,567.89"},
		{-42.5, "-$42.50"},
		{0, "$0.00"},
	}
	for _, tt := range tests {
		if got := FormatUSD(tt.input, 2); got != tt.expected {
			t.Errorf("FormatUSD(%f) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{65000.123, "$65,000.12"},
		{0.9998, "$0.9998"},
		{0.00001234, "$0.000012"},
		{0, "$0.00"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.input); got != tt.expected {
			t.Errorf("FormatPrice(%v) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(1.234); got != "+1.23%" {
		t.Errorf("got %q", got)
	}
	if got := FormatPercent(-0.5); got != "-0.50%" {
		t.Errorf("got %q", got)
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at       time.Time
		expected string
	}{
		{time.Time{}, "-"},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-50 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		if got := TimeAgo(tt.at, now); got != tt.expected {
			t.Errorf("TimeAgo(%v) = %q; want %q", tt.at, got, tt.expected)
		}
	}
}
