package orchestration

import "strings"

// joinSegment appends a streamed text segment to the transcript assembled so
// far. Producers are inconsistent about boundary whitespace, so a separating
// space is inserted only between a sentence-ending segment and one that
// starts a new word. Email addresses split across segments attach directly,
// whichever side of the split the '@' lands on.
func joinSegment(text, segment string) string {
	if segment == "" {
		return text
	}
	if text == "" {
		return segment
	}

	if needsSeparator(text, segment) {
		return text + " " + segment
	}
	return text + segment
}

func needsSeparator(text, segment string) bool {
	last := text[len(text)-1]
	first := segment[0]

	if isBoundarySpace(last) || isBoundarySpace(first) {
		return false
	}
	if last != '.' && last != '!' && last != '?' {
		return false
	}
	// Only a letter or digit can start a new sentence; '@' and other
	// punctuation attach to what came before.
	if !isWordStart(first) {
		return false
	}

	return !endsMidEmail(text)
}

func isBoundarySpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t'
}

func isWordStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// endsMidEmail reports whether the token before the terminal punctuation
// contains '@', meaning the text ends inside an email address whose domain
// is still streaming in ("a@gmail." waiting for "com").
func endsMidEmail(text string) bool {
	for i := len(text) - 2; i >= 0; i-- {
		switch text[i] {
		case ' ', '\n', '\t':
			return false
		case '@':
			return true
		}
	}
	return false
}

// ReassembleTranscript joins streamed segments into a single readable
// transcript, preserving arrival order.
func ReassembleTranscript(segments ...string) string {
	var text string
	for _, segment := range segments {
		text = joinSegment(text, segment)
	}
	return strings.TrimSpace(text)
}
