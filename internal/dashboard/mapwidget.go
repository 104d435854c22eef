package dashboard

import (
	"fmt"
	"image"
	"sync"

	"github.com/mum4k/termdash/cell"
	"github.com/mum4k/termdash/private/canvas"
	"github.com/mum4k/termdash/terminal/terminalapi"
	"github.com/mum4k/termdash/widgetapi"

	"beacon/internal/worldmap"
)

// MapWidget draws the peer world map. It rasterizes at the canvas size on
// every draw, so resizing the terminal reflows the map for free.
type MapWidget struct {
	mu           sync.Mutex
	renderer     *worldmap.Renderer
	markers      []worldmap.Point
	centerLon    *float64
	blink        map[int]struct{}
	blinkVisible bool
}

// NewMapWidget wraps a renderer as a termdash widget.
func NewMapWidget(renderer *worldmap.Renderer) *MapWidget {
	return &MapWidget{renderer: renderer, blinkVisible: true}
}

// SetMarkers replaces the marker set and the map's center meridian.
func (w *MapWidget) SetMarkers(markers []worldmap.Point, centerLon *float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markers = markers
	w.centerLon = centerLon
}

// SetBlink replaces the blinking marker set and its current phase.
func (w *MapWidget) SetBlink(blink map[int]struct{}, visible bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blink = blink
	w.blinkVisible = visible
}

// Draw implements widgetapi.Widget.
func (w *MapWidget) Draw(cvs *canvas.Canvas, meta *widgetapi.Meta) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	area := cvs.Area()
	grid := w.renderer.Render(area.Dx(), area.Dy(), w.markers, w.centerLon, w.blink, w.blinkVisible)
	for row, line := range grid {
		if row >= area.Dy() {
			break
		}
		for col, gc := range line {
			if col >= area.Dx() || gc.Ch == 0 || gc.Ch == ' ' {
				continue
			}
			opt := cell.FgColor(cell.ColorRGB24(int(gc.Color.R), int(gc.Color.G), int(gc.Color.B)))
			if _, err := cvs.SetCell(image.Point{X: col, Y: row}, gc.Ch, opt); err != nil {
				return err
			}
		}
	}
	return nil
}

// Keyboard implements widgetapi.Widget.
func (w *MapWidget) Keyboard(k *terminalapi.Keyboard, meta *widgetapi.EventMeta) error {
	return fmt.Errorf("the map widget does not handle keyboard events")
}

// Mouse implements widgetapi.Widget.
func (w *MapWidget) Mouse(m *terminalapi.Mouse, meta *widgetapi.EventMeta) error {
	return fmt.Errorf("the map widget does not handle mouse events")
}

// Options implements widgetapi.Widget.
func (w *MapWidget) Options() widgetapi.Options {
	return widgetapi.Options{
		MinimumSize: image.Point{X: 10, Y: 5},
	}
}
