package compile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reparse-dev/reparse/internal/compile"
)

func TestPatternRendersScanCode(t *testing.T) {
	res, err := compile.Pattern("{result}: ({operands*} ?)+", "line", []compile.CaptureDecl{
		{Name: "result", GoType: "int"},
		{Name: "operands", GoType: "int", Slice: true},
	})
	require.NoError(t, err)
	require.Contains(t, res.Source, "strconv.Atoi")
	require.ElementsMatch(t, []string{"result", "operands"}, res.Vars)
}

func TestMissingDeclSuggestsClosestName(t *testing.T) {
	_, err := compile.Pattern("{reuslt}", "line", []compile.CaptureDecl{
		{Name: "result", GoType: "int"},
	})
	require.Error(t, err)
	var mde *compile.MissingDeclError
	require.ErrorAs(t, err, &mde)
	require.Equal(t, "result", mde.Suggestion)
}

func TestAmbiguousVariablesPropagates(t *testing.T) {
	_, err := compile.Pattern("A{foo}B?{bar}", "line", []compile.CaptureDecl{
		{Name: "foo", GoType: "int"},
		{Name: "bar", GoType: "int"},
	})
	require.Error(t, err)
}
