package chat

import "strings"

// Emoji and pictograph ranges stripped from outbound text. Decorative glyphs
// read as unprofessional in a medical reply, so generator output is filtered
// before it leaves the service.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols and pictographs
	{0x1F680, 0x1F6FF}, // transport and map symbols
	{0x1F1E0, 0x1F1FF}, // regional indicators / flags
	{0x2702, 0x27B0},   // dingbats
	{0x1F900, 0x1F9FF}, // supplemental symbols
}

// StripEmoji removes pictographic characters from s, leaving everything else
// untouched.
func StripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		for _, rng := range emojiRanges {
			if r >= rng[0] && r <= rng[1] {
				return -1
			}
		}
		return r
	}, s)
}
