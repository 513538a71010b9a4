package table

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrInvalidConfigLine = errors.New("invalid config line")

// FormatTSV joins values with tabs. A value containing a tab, newline or
// quote is quoted.
func FormatTSV(values ...any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatTSVField(v)
	}
	return strings.Join(parts, "\t")
}

func formatTSVField(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, "\t\n\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// ConfigToText turns tab separated "key value [extra]" lines into the one
// line "key=value[=extra]," form stored in TABMAP-like config cells.
// Lines with fewer than two fields or two blank fields are skipped.
func ConfigToText(r io.Reader) (string, error) {
	var sb strings.Builder
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		a, b := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		switch {
		case a == "" && b == "":
			continue
		case a == "" || b == "":
			return "", errors.Wrapf(ErrInvalidConfigLine, "%q", line)
		}
		sb.WriteString(fields[0])
		sb.WriteByte('=')
		sb.WriteString(fields[1])
		if len(fields) > 2 && strings.TrimSpace(fields[2]) != "" {
			sb.WriteByte('=')
			sb.WriteString(fields[2])
		}
		sb.WriteByte(',')
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
