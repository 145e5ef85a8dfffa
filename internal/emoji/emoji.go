// Package emoji maps symbol keys to emoji with plain-text fallbacks.
package emoji

import "sync/atomic"

// emojiMap holds [emoji, fallback] pairs
var emojiMap = map[string][2]string{
	"error":      {"❌", "[ERR]"},
	"warning":    {"⚠️", "[WRN]"},
	"info":       {"ℹ️", "[INF]"},
	"success":    {"✅", "[OK]"},
	"statistics": {"📊", "[STATS]"},
	"rocket":     {"🚀", "[RUN]"},
	"help":       {"❓", "[?]"},
	"target":     {"🎯", "[>]"},
	"door":       {"🚪", "[EXIT]"},
	"number":     {"🔢", "[#]"},
	"user":       {"👤", "[USR]"},
	"users":      {"👥", "[USRS]"},
	"folder":     {"📁", "[DIR]"},
	"template":   {"📄", "[TPL]"},
	"sheet":      {"📑", "[XLS]"},
	"printer":    {"🖨️", "[PRN]"},
	"download":   {"📦", "[ZIP]"},
	"audit":      {"📜", "[LOG]"},
	"lock":       {"🔒", "[AUTH]"},
	"watch":      {"👀", "[WATCH]"},
}

var emojiDisabled atomic.Bool

// SetEmojiDisabled sets the global emoji disabled state
func SetEmojiDisabled(disabled bool) {
	emojiDisabled.Store(disabled)
}

// IsEmojiDisabled returns the current emoji disabled state
func IsEmojiDisabled() bool {
	return emojiDisabled.Load()
}

// GetEmoji returns emoji or fallback based on no-emoji setting
func GetEmoji(key string) string {
	if mapping, exists := emojiMap[key]; exists {
		if IsEmojiDisabled() {
			return mapping[1]
		}
		return mapping[0]
	}
	return "[?]"
}
