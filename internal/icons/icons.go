// Package icons maps weather condition codes and descriptions to display glyphs.
package icons

import "strings"

// Glyphs used by the dashboard.
const (
	Clear        = "☀️"
	ClearNight   = "🌙"
	PartlyCloudy = "⛅"
	Cloudy       = "☁️"
	Rain         = "🌧️"
	SunShowers   = "🌦️"
	Storm        = "⛈️"
	Snow         = "❄️"
	Fog          = "🌫️"
	Generic      = "🌤️"
)

// codeGlyphs maps OpenWeatherMap condition icon ids to glyphs.
// The trailing d/n selects the day or night variant.
var codeGlyphs = map[string]string{
	"01d": Clear, "01n": ClearNight,
	"02d": PartlyCloudy, "02n": Cloudy,
	"03d": Cloudy, "03n": Cloudy,
	"04d": Cloudy, "04n": Cloudy,
	"09d": Rain, "09n": Rain,
	"10d": SunShowers, "10n": Rain,
	"11d": Storm, "11n": Storm,
	"13d": Snow, "13n": Snow,
	"50d": Fog, "50n": Fog,
}

// keywordRule matches a description when any of its keywords occurs.
type keywordRule struct {
	keywords []string
	glyph    string
}

// Order matters: the first matching rule wins.
var descriptionRules = []keywordRule{
	{[]string{"sun", "clear"}, Clear},
	{[]string{"cloud"}, Cloudy},
	{[]string{"rain"}, Rain},
	{[]string{"snow"}, Snow},
	{[]string{"storm"}, Storm},
	{[]string{"fog", "mist"}, Fog},
}

// Resolve returns the glyph for a condition. A non-empty code takes precedence
// over the description; unknown codes and unmatched descriptions fall back to
// the generic glyph.
func Resolve(description, code string) string {
	if code != "" {
		if g, ok := codeGlyphs[code]; ok {
			return g
		}
		return Generic
	}

	desc := strings.ToLower(description)
	for _, rule := range descriptionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(desc, kw) {
				return rule.glyph
			}
		}
	}
	return Generic
}

// Codes returns the condition codes with a dedicated glyph.
func Codes() []string {
	codes := make([]string, 0, len(codeGlyphs))
	for c := range codeGlyphs {
		codes = append(codes, c)
	}
	return codes
}
