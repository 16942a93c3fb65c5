package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/mushcore/pkg/eval"
	"github.com/crystal-mush/mushcore/pkg/eval/functions"
	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func TestBatchChecksExpectations(t *testing.T) {
	h := harness{player: 1}
	ctx, err := h.context()
	require.NoError(t, err)

	in := strings.NewReader("# header\nadd(1,2) | 3\nadd(1,1) | 3\n\nmul(2,3)\n")
	var out bytes.Buffer
	failed, err := batch(ctx, in, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	got := out.String()
	assert.Contains(t, got, "[PASS] Line 2: add(1,2)")
	assert.Contains(t, got, "[FAIL] Line 3: add(1,1)")
	assert.Contains(t, got, "  Got:      2")
	assert.Contains(t, got, "Line 5: mul(2,3) => 6")
}

func TestMatchFunctions(t *testing.T) {
	ctx := eval.NewEvalContext(gamedb.NewDatabase())
	functions.RegisterAll(ctx)

	all := matchFunctions(ctx.Functions, "")
	assert.Len(t, all, len(ctx.Functions))
	assert.IsIncreasing(t, all)

	got := matchFunctions(ctx.Functions, "ad")
	require.NotEmpty(t, got)
	assert.Equal(t, "ADD", got[0])
	for _, name := range got {
		assert.Contains(t, name, "A")
	}
}

func TestReplStopsOnQuit(t *testing.T) {
	h := harness{player: 1}
	ctx, err := h.context()
	require.NoError(t, err)

	var out bytes.Buffer
	repl(ctx, strings.NewReader("add(2,2)\nquit\nadd(9,9)\n"), &out, 1)
	assert.Contains(t, out.String(), "mush> 4\n")
	assert.NotContains(t, out.String(), "18")
}
