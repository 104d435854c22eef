package logtail

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var periodRe = regexp.MustCompile(`([^:]+):\s*(\d+)s\s*(.+)`)

// StatPeriod is one clause of the daemon's periodic block statistics line.
type StatPeriod struct {
	Period       string
	TotalSeconds int
	Desc         string
}

// LatestBlockStatistics returns the most recent Block Statistics summary
// parsed into period clauses, along with the raw line for fallback display.
func (t *Tailer) LatestBlockStatistics() ([]StatPeriod, string) {
	lines, err := t.readLines()
	if err != nil {
		return nil, ""
	}

	var raw string
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], "Block Statistics") {
			raw = lines[i]
			break
		}
	}
	if raw == "" {
		return nil, ""
	}

	body := raw
	if idx := strings.Index(body, "Block Statistics"); idx >= 0 {
		body = body[idx:]
	}
	body = strings.TrimPrefix(body, "Block Statistics - ")
	body = strings.TrimPrefix(body, "Block Statistics")
	body = strings.TrimSpace(strings.NewReplacer("\r", "", "\n", "").Replace(body))

	var periods []StatPeriod
	for _, clause := range strings.Split(body, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		m := periodRe.FindStringSubmatch(clause)
		if m == nil {
			continue
		}
		seconds, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		periods = append(periods, StatPeriod{
			Period:       strings.TrimSpace(m[1]),
			TotalSeconds: seconds,
			Desc:         strings.TrimSpace(m[3]),
		})
	}

	return periods, body
}

const stakeMarker = "CheckStake(): New proof-of-stake block found"

// CountStakes counts proof-of-stake blocks found within the trailing window.
func (t *Tailer) CountStakes(window time.Duration) int {
	lines, err := t.readLines()
	if err != nil {
		return 0
	}

	cutoff := time.Now().UTC().Add(-window)
	count := 0
	for _, line := range lines {
		if !strings.Contains(line, stakeMarker) {
			continue
		}
		token := line
		if idx := strings.IndexByte(line, ' '); idx >= 0 {
			token = line[:idx]
		}
		ts, err := time.Parse(time.RFC3339Nano, token)
		if err != nil {
			continue
		}
		if !ts.Before(cutoff) {
			count++
		}
	}
	return count
}
