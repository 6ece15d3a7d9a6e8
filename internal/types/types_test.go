package types_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-shorts-pipeline/internal/types"
)

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Fibonacci Sequence", "Fibonacci_Sequence"},
		{"Euler's identity", "Euler's_identity"},
		{"Matrix (mathematics)", "Matrix_(mathematics)"},
		{"../../etc/passwd", "etcpasswd"},
		{`a\b/c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"  spaced   out  ", "spaced_out"},
		{"...", "untitled"},
		{"///", "untitled"},
		{"π", "π"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, types.SanitizeName(tt.in))
		})
	}
}

func TestSanitizeName_NeverContainsSeparators(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Pythagorean theorem", "a/b", `a\b`, "/", "..", "C:\\Windows\\x",
		"tab\tname", "new\nline", strings.Repeat("x/", 200), "Fermat's Last Theorem",
	}
	for _, in := range inputs {
		out := types.SanitizeName(in)
		assert.NotEmpty(t, out, in)
		assert.NotContains(t, out, "/", in)
		assert.NotContains(t, out, `\`, in)
		assert.NotEqual(t, "..", out, in)
		assert.LessOrEqual(t, len([]rune(out)), 100, in)
	}
}

func TestScript_FullTextAndWords(t *testing.T) {
	t.Parallel()

	s := &types.Script{
		Hook:   "The fascinating Fibonacci Sequence!",
		Points: []string{"Each number is the sum of the two before it.", ""},
		CTA:    "Follow for daily math shorts!",
	}
	assert.Equal(t,
		"The fascinating Fibonacci Sequence! Each number is the sum of the two before it. Follow for daily math shorts!",
		s.FullText())
	assert.Equal(t, 19, s.CountWords())
	assert.InDelta(t, 9.5, s.EstimatedSeconds(), 0.001)
}

func TestStageError_IsAndJSON(t *testing.T) {
	t.Parallel()

	cause := errors.New("ffmpeg exited 1")
	err := fmt.Errorf("pipeline: %w", types.NewStageError(types.StageRender, cause))

	assert.ErrorIs(t, err, types.ErrRender)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, types.ErrCombine)

	var se *types.StageError
	require.ErrorAs(t, err, &se)
	data, jerr := json.Marshal(se)
	require.NoError(t, jerr)
	assert.JSONEq(t, `{"stage":"render","cause":"ffmpeg exited 1"}`, string(data))

	assert.Nil(t, types.NewStageError(types.StageRender, nil))
	assert.Same(t, se, types.NewStageError(types.StageRender, se))
}
