package pdf

import (
	"regexp"
	"strings"
)

// BlockKind classifies one rendered line of report text.
type BlockKind int

const (
	BlockBlank BlockKind = iota
	BlockHeading
	BlockBullet
	BlockNumbered
	BlockParagraph
	// BlockParagraphEnd marks the extra spacing between blank-line
	// separated paragraphs.
	BlockParagraphEnd
)

// Span is a run of text with a single style.
type Span struct {
	Text string
	Bold bool
}

// Block is one line of lightweight markup resolved to its layout role.
// The transform is line oriented and single pass; anything that does not
// match a marker degrades to a plain paragraph line.
type Block struct {
	Kind BlockKind
	// Level is the heading depth (number of leading '#'), set for
	// BlockHeading only.
	Level int
	// Marker is the list marker as written ("1." or "1)"), set for
	// BlockNumbered only.
	Marker string
	// Indent is the count of leading spaces on the source line.
	Indent int
	Spans  []Span
}

var (
	numberedRe = regexp.MustCompile(`^(\d+\.|\d+\))\s`)
	boldRe     = regexp.MustCompile(`(\*\*[^*]+?\*\*)`)
)

// ParseBlocks turns free text with lightweight markup into a flat block
// sequence: '#' headings, '-'/'*' bullets, "1."/"1)" numbered items,
// '**' bold spans, blank lines as vertical space, and double newlines as
// paragraph breaks.
func ParseBlocks(text string) []Block {
	if text == "" {
		return nil
	}

	var blocks []Block
	for _, paragraph := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(paragraph) == "" {
			blocks = append(blocks, Block{Kind: BlockBlank})
			continue
		}
		for _, line := range strings.Split(paragraph, "\n") {
			blocks = append(blocks, parseLine(strings.TrimRight(line, " \t")))
		}
		blocks = append(blocks, Block{Kind: BlockParagraphEnd})
	}
	return blocks
}

func parseLine(line string) Block {
	if strings.TrimSpace(line) == "" {
		return Block{Kind: BlockBlank}
	}

	stripped := strings.TrimLeft(line, " ")
	indent := len(line) - len(stripped)

	if strings.HasPrefix(stripped, "#") {
		level := 0
		for level < len(stripped) && stripped[level] == '#' {
			level++
		}
		text := strings.TrimLeft(stripped[level:], " ")
		return Block{
			Kind:   BlockHeading,
			Level:  level,
			Indent: indent,
			Spans:  []Span{{Text: text}},
		}
	}

	if strings.HasPrefix(stripped, "- ") || strings.HasPrefix(stripped, "* ") {
		text := strings.TrimLeft(strings.TrimLeft(stripped, "-*"), " ")
		return Block{
			Kind:   BlockBullet,
			Indent: indent,
			Spans:  []Span{{Text: text}},
		}
	}

	if m := numberedRe.FindString(stripped); m != "" {
		return Block{
			Kind:   BlockNumbered,
			Marker: strings.TrimRight(m, " "),
			Indent: indent,
			Spans:  []Span{{Text: stripped[len(m):]}},
		}
	}

	return Block{
		Kind:   BlockParagraph,
		Indent: indent,
		Spans:  parseSpans(line),
	}
}

// parseSpans splits a paragraph line into bold and plain runs. A bold run
// needs a non-empty body between its '**' markers; anything malformed
// stays plain text, markers included.
func parseSpans(line string) []Span {
	if !strings.Contains(line, "**") {
		return []Span{{Text: line}}
	}

	var spans []Span
	last := 0
	for _, loc := range boldRe.FindAllStringIndex(line, -1) {
		if loc[0] > last {
			spans = append(spans, Span{Text: line[last:loc[0]]})
		}
		body := line[loc[0]+2 : loc[1]-2]
		spans = append(spans, Span{Text: body, Bold: true})
		last = loc[1]
	}
	if last < len(line) {
		spans = append(spans, Span{Text: line[last:]})
	}
	return spans
}
