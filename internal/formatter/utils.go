package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/dlgen/internal/emoji"
)

// formatNumber formats numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 0 {
		return "-" + addCommas(fmt.Sprintf("%d", -n))
	}
	return addCommas(fmt.Sprintf("%d", n))
}

// addCommas adds commas to number strings
func addCommas(s string) string {
	if len(s) <= 3 {
		return s
	}
	return addCommas(s[:len(s)-3]) + "," + s[len(s)-3:]
}

// symbol returns the emoji for key honoring --no-emoji
func symbol(key string) string {
	if key == "" {
		return ""
	}
	return emoji.GetEmoji(key) + " "
}

// flatten renders items as label/value pairs, nesting with dotted labels
func flatten(items []Item, prefix string) [][2]string {
	var out [][2]string
	for _, item := range items {
		label := item.Label
		if prefix != "" {
			label = prefix + "." + label
		}
		out = append(out, [2]string{label, item.Value})
		out = append(out, flatten(item.Children, label)...)
	}
	return out
}

// singleLine replaces line breaks so a value fits one cell
func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
