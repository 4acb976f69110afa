package datasets

import "strings"

var (
	captionPunct  = strings.NewReplacer(",", "", ".", "", "'", "", "!", "", "?", "", "\"", "", "(", "", ")", "", "*", "", "#", "", ":", "", ";", "", "~", "")
	captionSpaces = strings.NewReplacer("-", " ", "/", " ", "<person>", "person")
)

// PreCaption lowercases a caption, strips punctuation, collapses whitespace
// and keeps at most maxWords words. maxWords <= 0 keeps every word.
func PreCaption(caption string, maxWords int) string {
	c := captionPunct.Replace(strings.ToLower(caption))
	c = captionSpaces.Replace(c)
	words := strings.Fields(c)
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
