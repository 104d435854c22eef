package logtail

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Scan caps: entries are bounded regardless of log size.
const (
	maxDistinctHeights = 200
)

var (
	heightRe       = regexp.MustCompile(`\bheight=(\d+)\b`)
	hashRe         = regexp.MustCompile(`(?:best|hash)=([0-9a-fA-F]{8,64})`)
	fallbackHashRe = regexp.MustCompile(`\b([0-9a-fA-F]{8,64})\b`)
	txRe           = regexp.MustCompile(`\btx=(\d+)\b`)
)

// TipRow is one reconstructed chain-tip transition, newest first.
type TipRow struct {
	Height      int
	ShortHash   string
	TimeDisplay string
	ObservedAt  *time.Time
	TxCount     *int

	// Derived against the next older row.
	Delta   string
	TxDelta int // user transactions in the block; -1 when unknown
	Empty   bool
	Marker  string

	// Message is set on synthetic rows (missing file, no matches).
	Message string
}

// Tailer reconstructs tip events from the daemon debug log. It keeps no
// state between calls; every call re-reads and re-derives from scratch.
type Tailer struct {
	path string
}

func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

func (t *Tailer) Path() string {
	return t.path
}

type tipEntry struct {
	height     int
	shortHash  string
	display    string
	observedAt *time.Time
	txCount    *int
}

// TipEntries scans the log for UpdateTip lines and returns up to limit rows
// sorted descending by height, along with the newest row's local timestamp
// and timezone abbreviation.
func (t *Tailer) TipEntries(limit int) ([]TipRow, *time.Time, string) {
	lines, err := t.readLines()
	if err != nil {
		return []TipRow{{Message: err.Error()}}, nil, ""
	}

	entries := make([]tipEntry, 0, maxDistinctHeights)
	seen := make(map[int]struct{})

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !strings.Contains(line, "UpdateTip") {
			continue
		}

		entry := parseTipLine(line)
		if _, dup := seen[entry.height]; dup {
			continue
		}
		seen[entry.height] = struct{}{}
		entries = append(entries, entry)
		if len(entries) >= maxDistinctHeights {
			break
		}
	}

	if len(entries) == 0 {
		return []TipRow{{Message: "No UpdateTip entries."}}, nil, ""
	}

	// Descending by height; failed parses (-1) land at the bottom.
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].height > entries[b].height
	})

	count := limit
	if count > len(entries) {
		count = len(entries)
	}
	if count < 0 {
		count = 0
	}

	rows := make([]TipRow, 0, count)
	for i := 0; i < count; i++ {
		entry := entries[i]
		row := TipRow{
			Height:      entry.height,
			ShortHash:   entry.shortHash,
			TimeDisplay: entry.display,
			ObservedAt:  entry.observedAt,
			TxCount:     entry.txCount,
			Delta:       "-",
			TxDelta:     -1,
		}
		if i+1 < len(entries) {
			older := entries[i+1]
			if entry.observedAt != nil && older.observedAt != nil {
				row.Delta = formatDelta(entry.observedAt.Sub(*older.observedAt))
			}
			if entry.txCount != nil && older.txCount != nil {
				row.TxDelta, row.Empty = txDelta(*entry.txCount, *older.txCount)
				if row.Empty {
					row.Marker = "empty block"
				} else {
					row.Marker = fmt.Sprintf("%d tx", row.TxDelta)
				}
			}
		}
		rows = append(rows, row)
	}

	var latest *time.Time
	tzLabel := ""
	if rows[0].ObservedAt != nil {
		latest = rows[0].ObservedAt
		tzLabel = latest.Format("MST")
	}

	return rows, latest, tzLabel
}

func (t *Tailer) readLines() ([]string, error) {
	if _, err := os.Stat(t.path); err != nil {
		return nil, fmt.Errorf("debug.log not found")
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("unable to read debug.log")
	}
	return strings.Split(string(data), "\n"), nil
}

func parseTipLine(line string) tipEntry {
	entry := tipEntry{height: -1, shortHash: "-"}

	if m := heightRe.FindStringSubmatch(line); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil {
			entry.height = h
		}
	}

	m := hashRe.FindStringSubmatch(line)
	if m == nil {
		m = fallbackHashRe.FindStringSubmatch(line)
	}
	if m != nil {
		hash := m[1]
		if len(hash) > 8 {
			hash = hash[:8]
		}
		entry.shortHash = hash
	}

	token := line
	if idx := strings.IndexByte(line, ' '); idx >= 0 {
		token = line[:idx]
	}
	if ts, err := time.Parse(time.RFC3339Nano, token); err == nil {
		local := ts.Local()
		entry.observedAt = &local
		entry.display = local.Format("2006-01-02 03:04:05 PM MST")
	} else {
		display := strings.Replace(token, "T", " ", 1)
		if len(display) > 19 {
			display = display[:19]
		}
		entry.display = display
	}

	if m := txRe.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			entry.txCount = &n
		}
	}

	return entry
}

// txDelta derives user transactions in the newer block from cumulative
// chain counts. Every block carries two housekeeping transactions, which
// are excluded; a result of zero marks an empty block.
func txDelta(newer, older int) (int, bool) {
	diff := newer - older
	if diff < 0 {
		diff = -diff
	}
	diff -= 2
	if diff < 0 {
		diff = 0
	}
	return diff, diff == 0
}

func formatDelta(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 0 {
		seconds = -seconds
	}
	minutes := seconds / 60
	seconds = seconds % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
