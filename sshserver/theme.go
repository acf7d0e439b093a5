package sshserver

import (
	"strconv"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/schema"
)

type rgb struct {
	r int
	g int
	b int
}

type tuiTheme struct {
	Name       schema.ThemeName
	BaseBG     rgb
	BaseFG     rgb
	BarBG      rgb
	BarFG      rgb
	MutedFG    rgb
	ScoreFG    rgb
	AccentFG   rgb
	FocusBG    rgb
	FocusFG    rgb
	CriticalFG rgb
	SuccessFG  rgb
	ErrorFG    rgb
	InfoFG     rgb
}

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiReverse = "\x1b[7m"
)

var tuiThemes = map[schema.ThemeName]tuiTheme{
	schema.ThemeDark: {
		Name:       schema.ThemeDark,
		BaseBG:     rgb{r: 17, g: 20, b: 28},
		BaseFG:     rgb{r: 226, g: 230, b: 240},
		BarBG:      rgb{r: 34, g: 40, b: 56},
		BarFG:      rgb{r: 200, g: 206, b: 222},
		MutedFG:    rgb{r: 128, g: 136, b: 156},
		ScoreFG:    rgb{r: 255, g: 255, b: 255},
		AccentFG:   rgb{r: 250, g: 189, b: 47},
		FocusBG:    rgb{r: 122, g: 162, b: 247},
		FocusFG:    rgb{r: 17, g: 20, b: 28},
		CriticalFG: rgb{r: 255, g: 94, b: 94},
		SuccessFG:  rgb{r: 126, g: 211, b: 122},
		ErrorFG:    rgb{r: 255, g: 107, b: 107},
		InfoFG:     rgb{r: 112, g: 214, b: 255},
	},
	schema.ThemeLight: {
		Name:       schema.ThemeLight,
		BaseBG:     rgb{r: 246, g: 244, b: 238},
		BaseFG:     rgb{r: 40, g: 40, b: 40},
		BarBG:      rgb{r: 222, g: 216, b: 200},
		BarFG:      rgb{r: 60, g: 56, b: 54},
		MutedFG:    rgb{r: 124, g: 111, b: 100},
		ScoreFG:    rgb{r: 20, g: 20, b: 20},
		AccentFG:   rgb{r: 175, g: 58, b: 3},
		FocusBG:    rgb{r: 7, g: 102, b: 120},
		FocusFG:    rgb{r: 246, g: 244, b: 238},
		CriticalFG: rgb{r: 204, g: 36, b: 29},
		SuccessFG:  rgb{r: 66, g: 123, b: 88},
		ErrorFG:    rgb{r: 204, g: 36, b: 29},
		InfoFG:     rgb{r: 7, g: 102, b: 120},
	},
}

func themeForName(name schema.ThemeName) tuiTheme {
	if name == "" {
		name = schema.DefaultTheme
	}
	if theme, ok := tuiThemes[name]; ok {
		return theme
	}
	return tuiThemes[schema.DefaultTheme]
}

// themeOf returns the theme named by the theme class on el.
func themeOf(el core.Element) schema.ThemeName {
	if el == nil {
		return ""
	}
	for _, name := range schema.AvailableThemes() {
		if el.HasClass(schema.ThemeClass(name)) {
			return name
		}
	}
	return ""
}

func (t tuiTheme) base() string {
	return ansiBgRGB(t.BaseBG) + ansiFgRGB(t.BaseFG)
}

func (t tuiTheme) noticeFG(kind core.NoticeKind) rgb {
	switch kind {
	case core.NoticeSuccess:
		return t.SuccessFG
	case core.NoticeError:
		return t.ErrorFG
	default:
		return t.InfoFG
	}
}

func ansiFgRGB(c rgb) string {
	return "\x1b[38;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}

func ansiBgRGB(c rgb) string {
	return "\x1b[48;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}
