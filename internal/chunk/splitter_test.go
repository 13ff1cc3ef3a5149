package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordText builds deterministic prose with short words and regular
// sentence ends.
func wordText(words int) string {
	vocab := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
	var sb strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(vocab[i%len(vocab)])
		if i%11 == 10 {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// assertInvariants checks the structural properties every split must hold.
func assertInvariants(t *testing.T, docID, text string, chunks []Chunk) {
	t.Helper()
	trimmed := []rune(strings.TrimSpace(text))
	total := len(trimmed)

	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex, "chunk indices must be dense and 0-based")
		assert.Equal(t, ID(docID, i), c.ID)
		assert.Equal(t, docID, c.DocumentID)
		assert.NotEmpty(t, c.Content)
		assert.True(t, utf8.ValidString(c.Content))
		require.GreaterOrEqual(t, c.StartOffset, 0)
		require.Less(t, c.StartOffset, c.EndOffset)
		require.LessOrEqual(t, c.EndOffset, total)
		assert.Equal(t, strings.TrimSpace(string(trimmed[c.StartOffset:c.EndOffset])), c.Content,
			"content must be the trimmed rune range")
	}
}

func TestSplit_SmallTextSingleChunk(t *testing.T) {
	// Given: text shorter than the chunk size
	cfg := Config{ChunkSize: 100, Overlap: 20}

	// When: splitting
	chunks := Split("doc-1", "Small text.", cfg)

	// Then: exactly one chunk spans the whole text
	require.Len(t, chunks, 1)
	assert.Equal(t, "Small text.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 11, chunks[0].EndOffset)
	assert.Equal(t, "doc-1-0", chunks[0].ID)
}

func TestSplit_TrimsBeforeMeasuring(t *testing.T) {
	chunks := Split("d", "  \n\tpadded text\n\n ", Config{ChunkSize: 11, Overlap: 2})

	require.Len(t, chunks, 1)
	assert.Equal(t, "padded text", chunks[0].Content)
	assert.Equal(t, 11, chunks[0].EndOffset)
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t  \r\n"} {
		assert.Empty(t, Split("d", text, DefaultConfig()))
	}
}

func TestSplit_MultipleSentences(t *testing.T) {
	// Given: three sentences and a 50/10 config
	text := "This is the first sentence. This is the second sentence. This is the third sentence."
	cfg := Config{ChunkSize: 50, Overlap: 10}

	// When: splitting
	chunks := Split("doc-1", text, cfg)

	// Then: several non-empty chunks with sequential indices
	require.Greater(t, len(chunks), 1)
	assertInvariants(t, "doc-1", text, chunks)
	assert.Equal(t, "This is the first sentence.", chunks[0].Content)
}

func TestSplit_BreakPointPriority(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		cfg         Config
		wantEnd     int
		wantContent string
	}{
		{
			name:        "paragraph break",
			text:        strings.Repeat("a ", 20) + "\n\n" + strings.Repeat("b", 100),
			cfg:         Config{ChunkSize: 60, Overlap: 0},
			wantEnd:     42,
			wantContent: strings.TrimSpace(strings.Repeat("a ", 20)),
		},
		{
			name:        "sentence break",
			text:        "One two three. Four five six seven eight nine ten",
			cfg:         Config{ChunkSize: 20, Overlap: 5},
			wantEnd:     14,
			wantContent: "One two three.",
		},
		{
			name:        "word break",
			text:        "alpha beta gamma delta",
			cfg:         Config{ChunkSize: 12, Overlap: 2},
			wantEnd:     11,
			wantContent: "alpha beta",
		},
		{
			name:        "no break point",
			text:        "abcdefghijklmnopqrstuvwxyz",
			cfg:         Config{ChunkSize: 10, Overlap: 2},
			wantEnd:     10,
			wantContent: "abcdefghij",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split("d", tt.text, tt.cfg)

			require.NotEmpty(t, chunks)
			assert.Equal(t, tt.wantEnd, chunks[0].EndOffset)
			assert.Equal(t, tt.wantContent, chunks[0].Content)
			assertInvariants(t, "d", tt.text, chunks)
		})
	}
}

func TestSplit_CoversTextWithOverlap(t *testing.T) {
	// Given: long prose and the default config
	text := wordText(2000)
	cfg := DefaultConfig()

	// When: splitting
	chunks := Split("doc", text, cfg)
	require.Greater(t, len(chunks), 3)
	assertInvariants(t, "doc", text, chunks)

	// Then: the first chunk starts at 0 and the last reaches the end
	total := utf8.RuneCountInString(text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, total, chunks[len(chunks)-1].EndOffset)

	// And: consecutive chunks overlap, leaving no uncovered text
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		assert.Less(t, cur.StartOffset, prev.EndOffset, "chunk %d leaves a gap", i)
		overlap := prev.EndOffset - cur.StartOffset
		assert.LessOrEqual(t, overlap, cfg.Overlap, "chunk %d overlaps too much", i)
	}
}

func TestSplit_MultiByteText(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"accents", strings.Repeat("Café résumé naïve über façade. ", 40)},
		{"emoji", strings.Repeat("Hello 👋 world 🌍 rockets 🚀🚀 ", 40)},
		{"cjk", strings.Repeat("日本語のテキスト。中文文本 한국어 텍스트 ", 40)},
		{"smart quotes", strings.Repeat("“Quoted” text, with ‘marks’… ", 40)},
		{"no spaces cjk", strings.Repeat("漢字", 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, cfg := range []Config{{ChunkSize: 50, Overlap: 10}, {ChunkSize: 7, Overlap: 3}, DefaultConfig()} {
				chunks := Split("mb", tt.text, cfg)
				require.NotEmpty(t, chunks)
				assertInvariants(t, "mb", tt.text, chunks)
			}
		})
	}
}

func TestSplit_DegenerateConfigTerminates(t *testing.T) {
	text := wordText(200)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"overlap equals size", Config{ChunkSize: 40, Overlap: 40}},
		{"overlap exceeds size", Config{ChunkSize: 10, Overlap: 50}},
		{"size one", Config{ChunkSize: 1, Overlap: 5}},
		{"zero size uses default", Config{ChunkSize: 0, Overlap: 0}},
		{"negative overlap", Config{ChunkSize: 30, Overlap: -4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split("x", text, tt.cfg)

			require.NotEmpty(t, chunks)
			assertInvariants(t, "x", text, chunks)
		})
	}
}

func TestSplit_SkipsWhitespaceOnlyWindows(t *testing.T) {
	// Given: a gap of whitespace wider than the chunk size
	text := "head" + strings.Repeat(" ", 30) + "tail"

	// When: splitting with small windows
	chunks := Split("w", text, Config{ChunkSize: 8, Overlap: 0})

	// Then: empty windows are skipped without burning indices
	assertInvariants(t, "w", text, chunks)
	assert.Equal(t, "head", chunks[0].Content)
	assert.Equal(t, "tail", chunks[len(chunks)-1].Content)
}

func TestSplit_Deterministic(t *testing.T) {
	text := wordText(500)
	cfg := Config{ChunkSize: 120, Overlap: 30}

	assert.Equal(t, Split("d", text, cfg), Split("d", text, cfg))
}

func TestFindBreakPoint_StaysInsideWindow(t *testing.T) {
	// Given: a chunk smaller than the search window whose only whitespace
	// lies before the chunk start
	runes := []rune("ab " + strings.Repeat("x", 40))

	// When: searching within [5, 25)
	got := findBreakPoint(runes, 5, 25)

	// Then: the fallback end is used rather than a point before start
	assert.Equal(t, 25, got)
}

func TestConfigStep(t *testing.T) {
	assert.Equal(t, 800, DefaultConfig().step())
	assert.Equal(t, 20, Config{ChunkSize: 40, Overlap: 40}.step())
	assert.Equal(t, 1, Config{ChunkSize: 1, Overlap: 1}.step())
}
