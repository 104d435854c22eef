package dashboard

import "testing"

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3.5 * 1024 * 1024 * 1024, "3.50 GB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatHashrate(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{500, "500.00 H/s"},
		{1500, "1.50 kH/s"},
		{2_500_000, "2.50 MH/s"},
	}
	for _, tc := range cases {
		if got := formatHashrate(tc.in); got != tc.want {
			t.Errorf("formatHashrate(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{120, "2m"},
		{3720, "1h 2m"},
		{90061, "1d 1h 1m"},
	}
	for _, tc := range cases {
		if got := formatUptime(tc.in); got != tc.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPing(t *testing.T) {
	if got := formatPing(0.0521); got != "52 ms" {
		t.Errorf("formatPing = %q, want 52 ms", got)
	}
	if got := formatPing(0); got != "-" {
		t.Errorf("formatPing(0) = %q, want -", got)
	}
}
