// Package split segments formatted messages into transport-sized chunks
// without breaking markup. Every produced chunk fits the length limit
// and is independently renderable.
package split

import (
	"fmt"
	"regexp"
	"strings"
)

// Markup selects how a message body is interpreted while splitting.
type Markup string

const (
	// MarkupPlain treats the text as plain characters.
	MarkupPlain Markup = "plain"
	// MarkupHTML balances the recognized inline HTML tags per chunk.
	MarkupHTML Markup = "html"
)

// PartReserve is the headroom kept below the transport limit, sized to
// cover the "(Part i/n)" suffix plus a short run of closing tags.
const PartReserve = 20

// Chunk is one element of an ordered delivery sequence.
type Chunk struct {
	Text  string
	Index int
	Total int
}

// recognizedTags is the fixed set of inline tags that must stay
// balanced within every chunk.
var recognizedTags = []string{"b", "i", "u", "s", "code", "pre"}

var sentenceBoundary = regexp.MustCompile(`[.!?]\s`)

// Split cuts text into chunks of at most maxLength characters each.
// Single-chunk inputs are returned unmodified; longer inputs are cut at
// paragraph, sentence, or whitespace boundaries (in that order of
// preference) and suffixed with a part marker. In HTML mode no chunk is
// cut inside a recognized tag: interrupted formatting is closed at the
// chunk end and reopened at the start of the next chunk.
func Split(text string, maxLength int, markup Markup) []Chunk {
	if maxLength <= PartReserve {
		maxLength = PartReserve + 1
	}

	limit := maxLength - PartReserve
	if len(text) <= limit {
		return []Chunk{{Text: text, Index: 1, Total: 1}}
	}

	var parts []string
	carry := ""
	rest := text

	for rest != "" {
		body := carry + rest
		if len(body) <= limit {
			parts = append(parts, strings.TrimSpace(body))
			break
		}

		window := limit
		var head, tail string
		for {
			cut := boundaryCut(body, window)
			head = body[:cut]
			tail = body[cut:]
			carry = ""

			if markup != MarkupHTML {
				tail = strings.TrimLeft(tail, " \n")
				break
			}

			var remainder string
			head, carry, remainder = balance(head)

			// Closing tags appended by balance count against the chunk
			// budget; recut with a tighter window until the balanced
			// chunk fits.
			if over := len(head) - limit; over > 0 && window > over {
				window -= over
				continue
			}

			if remainder != "" {
				// The truncated run rejoins the tail verbatim so no
				// separator between them is lost.
				tail = remainder + tail
			} else {
				tail = strings.TrimLeft(tail, " \n")
			}
			break
		}

		parts = append(parts, strings.TrimSpace(head))
		rest = tail
	}

	chunks := make([]Chunk, 0, len(parts))
	total := len(parts)
	for i, part := range parts {
		if total > 1 {
			part += fmt.Sprintf("\n\n(Part %d/%d)", i+1, total)
		}
		chunks = append(chunks, Chunk{Text: part, Index: i + 1, Total: total})
	}

	return chunks
}

// boundaryCut picks the cut position within body[:limit]: the last
// paragraph break, else the last sentence end, else the last whitespace,
// else a hard cut at the limit.
func boundaryCut(body string, limit int) int {
	window := body[:limit]

	if cut := strings.LastIndex(window, "\n\n"); cut > 0 {
		return cut
	}

	if locs := sentenceBoundary.FindAllStringIndex(window, -1); len(locs) > 0 {
		return locs[len(locs)-1][1]
	}

	if cut := strings.LastIndexAny(window, " \n\t"); cut > 0 {
		return cut
	}

	return limit
}

// balance makes head independently valid HTML. When the cut falls
// inside an unmatched tag run that does not start the chunk, the chunk
// is truncated to end just before the unmatched opening tag and the
// dropped run is returned as remainder for the next chunk. When the run
// starts the chunk, the open tags are closed at the end instead and
// returned as the opening carry prefix of the next chunk.
func balance(head string) (balanced, carry, remainder string) {
	open := openTags(head)
	if len(open) == 0 {
		return head, "", ""
	}

	first := open[0]
	if truncated := strings.TrimSpace(head[:first.pos]); truncated != "" {
		return truncated, "", head[first.pos:]
	}

	var closers, openers strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		closers.WriteString("</" + open[i].name + ">")
	}
	for _, tag := range open {
		openers.WriteString("<" + tag.name + ">")
	}

	return head + closers.String(), openers.String(), ""
}

type openTag struct {
	name string
	pos  int
}

// openTags returns the stack of recognized tags left open in text, in
// opening order with the byte position of each opening tag.
func openTags(text string) []openTag {
	var stack []openTag

	for i := 0; i < len(text); i++ {
		if text[i] != '<' {
			continue
		}

		start := i
		closing := false
		j := i + 1
		if j < len(text) && text[j] == '/' {
			closing = true
			j++
		}

		end := strings.IndexByte(text[j:], '>')
		if end < 0 {
			break
		}
		name := strings.ToLower(text[j : j+end])
		i = j + end

		if !recognized(name) {
			continue
		}

		if closing {
			if n := len(stack); n > 0 && stack[n-1].name == name {
				stack = stack[:n-1]
			}
			continue
		}

		stack = append(stack, openTag{name: name, pos: start})
	}

	return stack
}

func recognized(name string) bool {
	for _, tag := range recognizedTags {
		if tag == name {
			return true
		}
	}
	return false
}

// StripTags removes every recognized tag from text, leaving the plain
// content.
func StripTags(text string) string {
	for _, tag := range recognizedTags {
		text = strings.ReplaceAll(text, "<"+tag+">", "")
		text = strings.ReplaceAll(text, "</"+tag+">", "")
	}
	return text
}

// Fallback produces a last-resort replacement for a chunk the transport
// rejected: the first half of the stripped text plus an explicit notice
// that the rest of the part was skipped.
func Fallback(text string, maxLength int) string {
	stripped := StripTags(text)
	half := len(stripped) / 2
	if half > maxLength/2 {
		half = maxLength / 2
	}
	return stripped[:half] + "...\n[Message too long, part skipped]\n..."
}
