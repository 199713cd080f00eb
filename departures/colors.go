package departures

// metroColors are the official line colors for the metro network.
var metroColors = map[string]string{
	"U1": "#E20613",
	"U2": "#A762A3",
	"U3": "#EF7C00",
	"U4": "#00963F",
	"U5": "#00ABB8",
	"U6": "#8A5E28",
}

var modeColors = map[Mode]string{
	ModeMetro: "#E20613",
	ModeTram:  "#D91A21",
	ModeBus:   "#0A295D",
	ModeInfo:  "#6E6E6E",
}

// LineColor returns the display hex for a line, preferring the per-line
// metro colors and falling back to a mode default.
func LineColor(line string, mode Mode) string {
	if c, ok := metroColors[line]; ok {
		return c
	}
	if c, ok := modeColors[mode]; ok {
		return c
	}
	return modeColors[ModeBus]
}
