package render

import (
	"fmt"
	"strings"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/timing"
)

var num = timing.FormatSeconds

// gate is the half-open visibility window [a, b) as an engine expression
func gate(a, b float64) string {
	return fmt.Sprintf("gte(t,%s)*lt(t,%s)", num(a), num(b))
}

// piecewise builds a clamped linear interpolation over sorted keyframes as a
// nested if() expression in variable v.
func piecewise(kfs []clips.Keyframe, v string) string {
	if len(kfs) == 1 {
		return num(kfs[0].Value)
	}

	var b strings.Builder
	open := 0

	fmt.Fprintf(&b, "if(lte(%s,%s),%s,", v, num(kfs[0].Time), num(kfs[0].Value))
	open++

	for i := 0; i < len(kfs)-1; i++ {
		a, n := kfs[i], kfs[i+1]
		span := n.Time - a.Time
		if span <= 0 {
			continue
		}
		fmt.Fprintf(&b, "if(lte(%s,%s),%s+(%s-%s)*(%s)/(%s),",
			v, num(n.Time), num(a.Value), v, num(a.Time), num(n.Value-a.Value), num(span))
		open++
	}

	b.WriteString(num(kfs[len(kfs)-1].Value))
	b.WriteString(strings.Repeat(")", open))
	return b.String()
}

var (
	// drawtext expands %{...} and backslash sequences in its text
	textEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`)
	// option values end at ':' and honor quotes and backslashes
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	// inside graph-level quotes only the quote itself needs breaking out
	graphQuoter = strings.NewReplacer(`'`, `'\''`)
)

// quoteOption escapes v for the filter option parser and then quotes the
// result for the filtergraph parser, which unescapes first.
func quoteOption(v string) string {
	return "'" + graphQuoter.Replace(optionEscaper.Replace(v)) + "'"
}

// quoteText is quoteOption for drawtext's text, which is expanded once more
func quoteText(s string) string {
	return quoteOption(textEscaper.Replace(s))
}

// position maps a CSS-like left/top value to a drawtext coordinate.
// "50%" centers; other values pass their number through.
func position(v, centered string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "50%" {
		return centered
	}
	if n, ok := timing.ParseLength(v); ok {
		return num(n)
	}
	return "0"
}
