package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "escapes html around a hidden span",
			input: "a<b>[REDACTED:secret]c",
			want:  `a&lt;b&gt;<span class="redacted" title="Hover to reveal">secret</span>c`,
		},
		{
			name:  "hidden text cannot inject markup",
			input: `[REDACTED:<script>alert("x")</script>]`,
			want:  `<span class="redacted" title="Hover to reveal">&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt;</span>`,
		},
		{
			name:  "newlines become breaks",
			input: "line one\nline 'two'",
			want:  "line one<br>line &#039;two&#039;",
		},
		{
			name:  "two spans on one line stay separate",
			input: "[REDACTED:a] and [REDACTED:b]",
			want:  `<span class="redacted" title="Hover to reveal">a</span> and <span class="redacted" title="Hover to reveal">b</span>`,
		},
		{
			name:  "span does not cross lines",
			input: "[REDACTED:a\nb]",
			want:  "[REDACTED:a<br>b]",
		},
		{
			name:  "ampersand escaped once",
			input: "R&D",
			want:  "R&amp;D",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(Render(tt.input)))
		})
	}
}

func TestRenderSecretOnlyInsideRevealElement(t *testing.T) {
	t.Parallel()

	out := string(Render("a<b>[REDACTED:secret]c"))
	outside := strings.Replace(out, `<span class="redacted" title="Hover to reveal">secret</span>`, "", 1)
	assert.NotContains(t, outside, "secret")
	assert.NotContains(t, out, "<b>")
}

func TestPreview(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Met at [REDACTED].", Preview("Met at [REDACTED:the docks].", 0))

	long := strings.Repeat("x", 200)
	got := Preview(long, 0)
	assert.Equal(t, strings.Repeat("x", PreviewLength)+"...", got)

	exact := strings.Repeat("y", PreviewLength)
	assert.Equal(t, exact, Preview(exact, 0))

	assert.Equal(t, "ñañ...", Preview("ñañaña", 3), "cuts on runes, not bytes")
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	got := PlainText("Seen near [REDACTED:the docks]\nat dawn")
	assert.Contains(t, got, "Seen near [REDACTED]")
	assert.Contains(t, got, "at dawn")
	assert.NotContains(t, got, "the docks")
	assert.NotContains(t, got, "<br>")

	assert.Empty(t, PlainText(""))
}

func TestHasRedactions(t *testing.T) {
	t.Parallel()

	assert.True(t, HasRedactions("x [REDACTED:y] z"))
	assert.False(t, HasRedactions("[REDACTED] only"))
}
