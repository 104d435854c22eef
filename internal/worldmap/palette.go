package worldmap

import "strconv"

// Color is a 24-bit RGB value; the zero value means the terminal default.
type Color struct {
	R, G, B uint8
}

var (
	// LandColor is muted so peer markers visually pop.
	LandColor = Color{0x50, 0x50, 0x50}
	// blinkDim replaces a marker's color during the off phase of the
	// blink animation.
	blinkDim = Color{0x33, 0x33, 0x33}
)

// 125 distinct marker colors, golden-ratio hue distribution.
var paletteHex = []string{
	"#ed2a2a", "#628ef8", "#a8f23f", "#fb78eb", "#54f6db",
	"#f09931", "#8e6afa", "#4ef546", "#f688ad", "#5cbef9",
	"#e4f339", "#da7af4", "#4ef7a2", "#f1542c", "#6471fb",
	"#85f641", "#f683d0", "#56f3f9", "#f4c333", "#af75f4",
	"#48f865", "#f22640", "#68a2f2", "#c0f63b", "#f67df6",
	"#50fac8", "#f5802d", "#806ff5", "#62f943", "#f885ba",
	"#62cff3", "#f7ee35", "#cc78f7", "#55f18f", "#f63727",
	"#6a88f5", "#9cfa3d", "#f980e0", "#5cf3e6", "#f8ac2f",
	"#9e72f7", "#4ff155", "#f62158", "#64b4f6", "#d3ef42",
	"#e87af9", "#57f4b1", "#f96429", "#6c6df8", "#7cf249",
	"#fb83ca", "#5fe4f6", "#f0d13c", "#bc75fa", "#51f479",
	"#ee2f38", "#6798f8", "#b2f344", "#fb7df2", "#59f7d5",
	"#f19236", "#8b6ffa", "#5bf54b", "#ee2975", "#61c7f9",
	"#edf33e", "#d67ff4", "#53f79d", "#f14f30", "#697dfb",
	"#91f645", "#f687d7", "#5bf9f8", "#f4bb38", "#ac7af5",
	"#4df861", "#f22a4e", "#6cabf3", "#cbf740", "#f082f7",
	"#55fac2", "#f57932", "#7e74f5", "#6ef947", "#f3248e",
	"#67d7f3", "#f7e53a", "#c87cf7", "#59f18a", "#f6322c",
	"#6f92f5", "#a7fa42", "#f985e7", "#61f4df", "#f8a434",
	"#9b77f7", "#56f254", "#f72665", "#69bdf6", "#ddf047",
	"#e37ff9", "#5cf4ac", "#f95e2e", "#7179f8", "#87f24e",
	"#f820aa", "#63ecf6", "#f0c941", "#b87afa", "#56f575",
	"#ee3446", "#6ca2f8", "#bcf348", "#fb82f8", "#5ef7ce",
	"#f18c3b", "#8874fa", "#67f550", "#ef2e81", "#66d0f9",
	"#f4f143", "#d284f5", "#58f898", "#f24a35", "#6e88fb",
}

var peerPalette = buildPalette(paletteHex)

func buildPalette(hexes []string) []Color {
	palette := make([]Color, 0, len(hexes))
	for _, hex := range hexes {
		palette = append(palette, parseHex(hex))
	}
	return palette
}

func parseHex(hex string) Color {
	if len(hex) != 7 || hex[0] != '#' {
		return Color{}
	}
	r, err1 := strconv.ParseUint(hex[1:3], 16, 8)
	g, err2 := strconv.ParseUint(hex[3:5], 16, 8)
	b, err3 := strconv.ParseUint(hex[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return Color{}
	}
	return Color{uint8(r), uint8(g), uint8(b)}
}

// PaletteColor returns the stable color assigned to a marker index.
func PaletteColor(idx int) Color {
	if idx < 0 {
		return LandColor
	}
	return peerPalette[idx%len(peerPalette)]
}
