package worldmap

import "math"

const (
	minCols = 10
	minRows = 5

	landGlyph   = '*'
	waterGlyph  = ' '
	markerGlyph = '●'
)

// latRange spans 90°N down to the Antarctica cutoff.
const latRange = 90 - southLimit

// Point is a marker position.
type Point struct {
	Lat, Lon float64
}

// Cell is one rendered grid position.
type Cell struct {
	Ch    rune
	Color Color
}

// Renderer rasterizes the land dataset plus peer markers. A nil Land is
// tolerated and yields a placeholder grid.
type Renderer struct {
	land *Land
}

func NewRenderer(land *Land) *Renderer {
	return &Renderer{land: land}
}

// Render produces a cols×rows character grid. centerLon, when set,
// re-centers the longitude axis on that meridian instead of the standard
// ±180° split. Markers in blink render dimmed while blinkVisible is false.
// Failure states produce a one-line placeholder rather than a partial grid.
func (r *Renderer) Render(cols, rows int, markers []Point, centerLon *float64, blink map[int]struct{}, blinkVisible bool) [][]Cell {
	if cols < minCols || rows < minRows {
		return placeholder("(map too small)")
	}
	if r.land == nil {
		return placeholder("(map data unavailable)")
	}

	markerCells := placeMarkers(cols, rows, markers, centerLon)

	grid := make([][]Cell, rows)
	for row := 0; row < rows; row++ {
		lat := 90 - (float64(row)+0.5)/float64(rows)*latRange
		line := make([]Cell, cols)
		for col := 0; col < cols; col++ {
			if idx, ok := markerCells[gridPos{col, row}]; ok {
				line[col] = Cell{Ch: markerGlyph, Color: markerColor(idx, blink, blinkVisible)}
				continue
			}
			lon := normalizeLon(lonAtCol(col, cols, centerLon))
			if r.land.Contains(lon, lat) {
				line[col] = Cell{Ch: landGlyph, Color: LandColor}
			} else {
				line[col] = Cell{Ch: waterGlyph}
			}
		}
		grid[row] = line
	}
	return grid
}

type gridPos struct {
	col, row int
}

// placeMarkers assigns each marker a cell, searching an expanding ring of
// neighbors when the base cell is taken. If both rings are full the base
// cell is overwritten: a marker is never dropped.
func placeMarkers(cols, rows int, markers []Point, centerLon *float64) map[gridPos]int {
	cells := make(map[gridPos]int, len(markers))
	offsets := ringOffsets(2)
	for idx, marker := range markers {
		baseCol := clamp(colForLon(marker.Lon, cols, centerLon), 0, cols-1)
		baseRow := clamp(int((90-marker.Lat)/latRange*float64(rows)), 0, rows-1)

		placed := false
		for _, off := range offsets {
			pos := gridPos{baseCol + off.col, baseRow + off.row}
			if pos.col < 0 || pos.col >= cols || pos.row < 0 || pos.row >= rows {
				continue
			}
			if _, taken := cells[pos]; taken {
				continue
			}
			cells[pos] = idx
			placed = true
			break
		}
		if !placed {
			cells[gridPos{baseCol, baseRow}] = idx
		}
	}
	return cells
}

// ringOffsets lists the origin, then each square ring outward in order.
func ringOffsets(radius int) []gridPos {
	offsets := []gridPos{{0, 0}}
	for r := 1; r <= radius; r++ {
		for dc := -r; dc <= r; dc++ {
			for dr := -r; dr <= r; dr++ {
				if abs(dc) == r || abs(dr) == r {
					offsets = append(offsets, gridPos{dc, dr})
				}
			}
		}
	}
	return offsets
}

func markerColor(idx int, blink map[int]struct{}, blinkVisible bool) Color {
	if !blinkVisible {
		if _, blinking := blink[idx]; blinking {
			return blinkDim
		}
	}
	return PaletteColor(idx)
}

func lonAtCol(col, cols int, centerLon *float64) float64 {
	if centerLon != nil {
		return *centerLon - 180 + (float64(col)+0.5)/float64(cols)*360
	}
	return -180 + (float64(col)+0.5)/float64(cols)*360
}

func colForLon(lon float64, cols int, centerLon *float64) int {
	if centerLon != nil {
		offset := normalizeLonAround(lon, *centerLon)
		return int((offset + 180) / 360 * float64(cols))
	}
	return int((lon + 180) / 360 * float64(cols))
}

// normalizeLonAround maps lon into (-180, 180] relative to the center
// meridian.
func normalizeLonAround(lon, centerLon float64) float64 {
	return math.Mod(math.Mod(lon-centerLon+180, 360)+360, 360) - 180
}

func normalizeLon(lon float64) float64 {
	return math.Mod(math.Mod(lon+180, 360)+360, 360) - 180
}

func placeholder(msg string) [][]Cell {
	line := make([]Cell, 0, len(msg))
	for _, ch := range msg {
		line = append(line, Cell{Ch: ch, Color: LandColor})
	}
	return [][]Cell{line}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
