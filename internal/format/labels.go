// Package format renders analytics results for display: month axes, chart
// series, category colors and locale-aware currency strings.
//
// Nothing in internal/analytics depends on this package.
package format

import (
	"fmt"

	"golang.org/x/text/language"

	"saldo/internal/analytics"
	"saldo/internal/core"
)

// DefaultLocale is used when no locale is configured or requested.
var DefaultLocale = language.BrazilianPortuguese

var (
	supported = []language.Tag{language.English, language.Portuguese, language.Italian}
	matcher   = language.NewMatcher(supported)

	monthLabels = map[language.Base][12]string{
		mustBase(language.English):    {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		mustBase(language.Portuguese): {"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"},
		mustBase(language.Italian):    {"Gen", "Feb", "Mar", "Apr", "Mag", "Giu", "Lug", "Ago", "Set", "Ott", "Nov", "Dic"},
	}
)

func mustBase(t language.Tag) language.Base {
	b, _ := t.Base()
	return b
}

// ParseLocale parses a BCP 47 tag, falling back to DefaultLocale.
func ParseLocale(s string) language.Tag {
	if s == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(s)
	if err != nil {
		return DefaultLocale
	}
	return tag
}

// MonthLabels returns the short month names for tag. Unsupported languages
// get English labels.
func MonthLabels(tag language.Tag) [12]string {
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return monthLabels[mustBase(language.English)]
	}
	return monthLabels[mustBase(supported[idx])]
}

// CycleLabel renders a cycle as "Mar/2024".
func CycleLabel(k core.CycleKey, tag language.Tag) string {
	return fmt.Sprintf("%s/%d", MonthLabels(tag)[k.Month], k.Year)
}

// BoundsLabel renders a cycle range as "26/Jan – 25/Fev".
func BoundsLabel(start, end core.Date, tag language.Tag) string {
	labels := MonthLabels(tag)
	return fmt.Sprintf("%02d/%s – %02d/%s", start.Day(), labels[start.Month()-1], end.Day(), labels[end.Month()-1])
}

// CycleOption is one entry of the period selector.
type CycleOption struct {
	Key   core.CycleKey `json:"key"`
	Label string        `json:"label"`
	Range string        `json:"range"`
	Start core.Date     `json:"start"`
	End   core.Date     `json:"end"`
}

// CycleOptions decorates enumerated cycles with labels and bounds.
func CycleOptions(keys []core.CycleKey, cfg core.CycleConfig, tag language.Tag) []CycleOption {
	out := make([]CycleOption, 0, len(keys))
	for _, k := range keys {
		start, end := analytics.CycleBounds(k, cfg)
		out = append(out, CycleOption{
			Key:   k,
			Label: CycleLabel(k, tag),
			Range: BoundsLabel(start, end, tag),
			Start: start,
			End:   end,
		})
	}
	return out
}
