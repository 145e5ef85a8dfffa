package cli

import (
	"fmt"
	"strings"

	"github.com/yildizm/dlgen/internal/emoji"
	"github.com/yildizm/dlgen/internal/wizard"
)

// GetEmoji is a wrapper for the shared emoji package
func GetEmoji(key string) string {
	return emoji.GetEmoji(key)
}

// GetStageEmoji returns the symbol for a finished run
func GetStageEmoji(stage wizard.Stage) string {
	switch stage {
	case wizard.Succeeded:
		return GetEmoji("success")
	case wizard.Failed:
		return GetEmoji("error")
	case wizard.Generating:
		return GetEmoji("rocket")
	default:
		return GetEmoji("info")
	}
}

// CreateProgressBar renders percent as a 20 character bar with emoji fallback
func CreateProgressBar(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	const width = 20
	filled := int(percent / 100 * width)

	fill, empty := "█", "░"
	if isEmojiDisabled() {
		fill, empty = "#", "-"
	}
	bar := strings.Repeat(fill, filled) + strings.Repeat(empty, width-filled)
	if isEmojiDisabled() {
		bar = "[" + bar + "]"
	}
	return fmt.Sprintf("%s %3.0f%%", bar, percent)
}
