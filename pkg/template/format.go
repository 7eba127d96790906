package template

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tadventure/engine/pkg/state"
)

// Format specs follow a small printf-derived grammar:
//
//	[0][width]["." precision] type      type in {f, d, s}
//
// "0" selects zero padding, width the minimum field width, precision the
// fixed-point digit count for f (default 6 when omitted).
var formatSpecRe = regexp.MustCompile(`^(0)?(\d*)(?:\.(\d+))?([fds])$`)

// isFormatSpec reports whether a tag suffix is a format spec rather than
// part of the expression.
func isFormatSpec(s string) bool {
	return formatSpecRe.MatchString(s)
}

// applyFormat renders a value through a format spec. f and d demand a
// numeric value; handing them anything else is fatal for the render pass.
func applyFormat(v state.Value, spec string) (string, error) {
	m := formatSpecRe.FindStringSubmatch(spec)
	if m == nil {
		return "", renderErrf("bad format spec %q", spec)
	}
	zero, width, precision, verb := m[1] == "0", m[2], m[3], m[4]

	switch verb {
	case "s":
		out := v.String()
		if width != "" {
			w, _ := strconv.Atoi(width)
			if len(out) < w {
				out = strings.Repeat(" ", w-len(out)) + out
			}
		}
		return out, nil
	case "f":
		if v.Kind() != state.KindNumber {
			return "", renderErrf("format %q needs a number, got %s", spec, v.String())
		}
		prec := 6
		if precision != "" {
			prec, _ = strconv.Atoi(precision)
		}
		var b strings.Builder
		b.WriteByte('%')
		if zero {
			b.WriteByte('0')
		}
		b.WriteString(width)
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(prec))
		b.WriteByte('f')
		return fmt.Sprintf(b.String(), v.Num()), nil
	case "d":
		if v.Kind() != state.KindNumber {
			return "", renderErrf("format %q needs a number, got %s", spec, v.String())
		}
		n := int64(math.Round(v.Num()))
		var b strings.Builder
		b.WriteByte('%')
		if zero {
			b.WriteByte('0')
		}
		b.WriteString(width)
		b.WriteByte('d')
		return fmt.Sprintf(b.String(), n), nil
	}
	return "", renderErrf("bad format spec %q", spec)
}
