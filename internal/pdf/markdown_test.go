package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks_Empty(t *testing.T) {
	assert.Nil(t, ParseBlocks(""))
}

func TestParseBlocks_Headings(t *testing.T) {
	blocks := ParseBlocks("# Safety\n## Scaffolding\n### East wing")
	require.Len(t, blocks, 4)

	assert.Equal(t, BlockHeading, blocks[0].Kind)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, "Safety", blocks[0].Spans[0].Text)

	assert.Equal(t, 2, blocks[1].Level)
	assert.Equal(t, "Scaffolding", blocks[1].Spans[0].Text)

	assert.Equal(t, 3, blocks[2].Level)
	assert.Equal(t, "East wing", blocks[2].Spans[0].Text)

	assert.Equal(t, BlockParagraphEnd, blocks[3].Kind)
}

func TestParseBlocks_Bullets(t *testing.T) {
	blocks := ParseBlocks("- check anchors\n* replace netting")
	require.Len(t, blocks, 3)

	assert.Equal(t, BlockBullet, blocks[0].Kind)
	assert.Equal(t, "check anchors", blocks[0].Spans[0].Text)
	assert.Equal(t, BlockBullet, blocks[1].Kind)
	assert.Equal(t, "replace netting", blocks[1].Spans[0].Text)
}

func TestParseBlocks_NumberedKeepsMarkerStyle(t *testing.T) {
	blocks := ParseBlocks("1. pour footing\n2) cure 48h")
	require.Len(t, blocks, 3)

	assert.Equal(t, BlockNumbered, blocks[0].Kind)
	assert.Equal(t, "1.", blocks[0].Marker)
	assert.Equal(t, "pour footing", blocks[0].Spans[0].Text)

	assert.Equal(t, "2)", blocks[1].Marker)
	assert.Equal(t, "cure 48h", blocks[1].Spans[0].Text)
}

func TestParseBlocks_BoldSpans(t *testing.T) {
	blocks := ParseBlocks("site is **closed** until **further notice**")
	require.Len(t, blocks, 2)
	require.Equal(t, BlockParagraph, blocks[0].Kind)

	spans := blocks[0].Spans
	require.Len(t, spans, 4)
	assert.Equal(t, Span{Text: "site is "}, spans[0])
	assert.Equal(t, Span{Text: "closed", Bold: true}, spans[1])
	assert.Equal(t, Span{Text: " until "}, spans[2])
	assert.Equal(t, Span{Text: "further notice", Bold: true}, spans[3])
}

func TestParseBlocks_MalformedBoldStaysPlain(t *testing.T) {
	for _, line := range []string{
		"unterminated **bold run",
		"empty **** markers",
	} {
		blocks := ParseBlocks(line)
		require.NotEmpty(t, blocks, line)
		for _, span := range blocks[0].Spans {
			assert.False(t, span.Bold, line)
		}
	}
}

func TestParseBlocks_ParagraphBreaks(t *testing.T) {
	blocks := ParseBlocks("first paragraph\nstill first\n\nsecond paragraph")
	require.Len(t, blocks, 5)

	assert.Equal(t, BlockParagraph, blocks[0].Kind)
	assert.Equal(t, BlockParagraph, blocks[1].Kind)
	assert.Equal(t, BlockParagraphEnd, blocks[2].Kind)
	assert.Equal(t, BlockParagraph, blocks[3].Kind)
	assert.Equal(t, BlockParagraphEnd, blocks[4].Kind)
}

func TestParseBlocks_IndentPreserved(t *testing.T) {
	blocks := ParseBlocks("    nested detail")
	require.NotEmpty(t, blocks)
	assert.Equal(t, 4, blocks[0].Indent)
	assert.Equal(t, "    nested detail", blocks[0].Spans[0].Text)
}

func TestParseBlocks_MarkerWithoutSpaceIsParagraph(t *testing.T) {
	blocks := ParseBlocks("-no space after dash\n1.also no space")
	require.Len(t, blocks, 3)
	assert.Equal(t, BlockParagraph, blocks[0].Kind)
	assert.Equal(t, BlockParagraph, blocks[1].Kind)
}
