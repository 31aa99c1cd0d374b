package sse

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// splitBySizes cuts b into consecutive chunks whose lengths cycle through
// sizes. A size of zero produces an empty chunk.
func splitBySizes(b []byte, sizes []int) [][]byte {
	if len(sizes) == 0 {
		return [][]byte{b}
	}
	var out [][]byte
	for i := 0; len(b) > 0; i++ {
		n := sizes[i%len(sizes)]
		if n > len(b) {
			n = len(b)
		}
		if n == 0 && i > 4*len(b)+len(sizes) {
			n = 1
		}
		out = append(out, b[:n])
		b = b[n:]
	}
	return out
}

func feedAll(chunks [][]byte) ([]string, string) {
	d := NewLineDecoder()
	var lines []string
	for _, c := range chunks {
		lines = append(lines, d.Feed(c)...)
	}
	return lines, d.Pending()
}

func TestLineDecoder_KeepsCarryOver(t *testing.T) {
	d := NewLineDecoder()
	require.Empty(t, d.Feed([]byte("data: {\"type\":")))
	require.Equal(t, "data: {\"type\":", d.Pending())

	lines := d.Feed([]byte("\"log\"}\n\ndata: x"))
	require.Equal(t, []string{"data: {\"type\":\"log\"}", ""}, lines)
	require.Equal(t, "data: x", d.Pending())

	require.Equal(t, "data: x", d.Flush())
	require.Equal(t, "", d.Pending())
}

func TestLineDecoder_EmptyChunk(t *testing.T) {
	d := NewLineDecoder()
	require.Nil(t, d.Feed(nil))
	require.Nil(t, d.Feed([]byte{}))
}

func TestLineDecoder_ByteAtATimeWithMultibyteText(t *testing.T) {
	input := "data: {\"type\":\"log\",\"message\":\"正在搜索\"}\n\ndata: {\"type\":\"chunk\",\"content\":\"é✓\"}\n"
	whole, _ := feedAll([][]byte{[]byte(input)})

	d := NewLineDecoder()
	var lines []string
	for i := 0; i < len(input); i++ {
		lines = append(lines, d.Feed([]byte{input[i]})...)
	}
	require.Equal(t, whole, lines)
	require.Equal(t, "data: {\"type\":\"log\",\"message\":\"正在搜索\"}", lines[0])
	require.Equal(t, "", d.Pending())
}

func TestLineDecoder_ChunkSplitInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary chunking yields the same lines", prop.ForAll(
		func(lines []string, terminated bool, sizes []int) bool {
			input := strings.Join(lines, "\n")
			if terminated && len(lines) > 0 {
				input += "\n"
			}
			wantLines, wantRest := feedAll([][]byte{[]byte(input)})
			gotLines, gotRest := feedAll(splitBySizes([]byte(input), sizes))
			if len(wantLines) != len(gotLines) || wantRest != gotRest {
				return false
			}
			for i := range wantLines {
				if wantLines[i] != gotLines[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
		gen.Bool(),
		gen.SliceOf(gen.IntRange(0, 9)),
	))

	properties.TestingRun(t)
}

func TestEventDecoder_MalformedLineIsolated(t *testing.T) {
	var diags []Diagnostic
	d := NewEventDecoder(WithDiagnosticHook(Collect(&diags)), WithSessionID("s1"))

	input := "data: {\"type\":\"log\",\"message\":\"a\"}\ndata: {bad\ndata: {\"type\":\"log\",\"message\":\"b\"}\n"
	evs := d.Feed([]byte(input))
	d.Close()

	require.Len(t, evs, 2)
	require.Equal(t, `{"type":"log","message":"a"}`, string(evs[0].Raw()))
	require.Equal(t, `{"type":"log","message":"b"}`, string(evs[1].Raw()))
	require.Equal(t, 1, d.Dropped())
	require.Len(t, diags, 1)
	require.Equal(t, DropMalformed, diags[0].Reason)
	require.Equal(t, "s1", diags[0].SessionID)
	require.Equal(t, "data: {bad", diags[0].Line)
	var mle *MalformedLineError
	require.ErrorAs(t, diags[0].Err, &mle)
}

func TestEventDecoder_SkipsNonDataLines(t *testing.T) {
	var diags []Diagnostic
	d := NewEventDecoder(WithDiagnosticHook(Collect(&diags)))

	evs := d.Feed([]byte(": keep-alive\n\nevent: message\nid: 3\ndata: {\"type\":\"done\"}\n\n"))
	require.Len(t, evs, 1)
	require.Empty(t, diags)
}

func TestEventDecoder_UnterminatedTailIsNotEmitted(t *testing.T) {
	var diags []Diagnostic
	d := NewEventDecoder(WithDiagnosticHook(Collect(&diags)))

	evs := d.Feed([]byte("data: {\"type\":\"log\",\"message\":\"a\"}\ndata: {\"type\":\"done\"}"))
	require.Len(t, evs, 1)
	d.Close()

	require.Len(t, diags, 1)
	require.Equal(t, DropUnterminated, diags[0].Reason)
	require.Equal(t, "data: {\"type\":\"done\"}", diags[0].Line)
}

func TestEventDecoder_BlankTailIsNotReported(t *testing.T) {
	var diags []Diagnostic
	d := NewEventDecoder(WithDiagnosticHook(Collect(&diags)))
	d.Feed([]byte("data: {\"type\":\"done\"}\n  "))
	d.Close()
	require.Empty(t, diags)
	require.Equal(t, 0, d.Dropped())
}

func TestParseLine(t *testing.T) {
	ev, ok, err := ParseLine(`data: {"type":"chunk","content":"x"}`)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "chunk", string(ev.Kind()))

	_, ok, err = ParseLine(`data:{"type":"chunk"}`)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = ParseLine(``)
	require.NoError(t, err)
	require.False(t, ok)
}
