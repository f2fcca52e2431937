package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessInjectsStructsOnce(t *testing.T) {
	src := "// @lumen:include camera\n// @lumen:include camera\nfn f() {}"

	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct CameraUniform"))
	assert.Contains(t, out, "fn f() {}")
	assert.NotContains(t, out, "@lumen:")
}

func TestProcessGeneratesUniformDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	src := strings.Join([]string{
		"// @lumen:include tonemap",
		"// @lumen:group 0 0 uniform tonemap params",
		"// @lumen:group 1 0 uniform object object_data",
	}, "\n")

	out, err := pp.Process(src)
	require.NoError(t, err)
	assert.Contains(t, out, "@group(0) @binding(0) var<uniform> params: ToneMapParams;")
	assert.Contains(t, out, "@group(1) @binding(0) var<uniform> object_data: ObjectUniform;")

	decls := pp.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, uint64(16), decls[0].Size)
	assert.Equal(t, uint32(1), decls[1].Group)
	assert.Equal(t, uint64(96), decls[1].Size)
	assert.Equal(t, 3, decls[1].Line)
}

func TestProcessResetsDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("// @lumen:group 0 0 uniform camera camera")
	require.NoError(t, err)
	_, err = pp.Process("fn f() {}")
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "empty", src: "// @lumen:", want: "empty @lumen annotation"},
		{name: "unknown type", src: "// @lumen:define x", want: "unknown @lumen annotation type"},
		{name: "unknown struct", src: "// @lumen:include shadow", want: "unknown struct type"},
		{name: "include arity", src: "// @lumen:include camera light", want: "exactly one argument"},
		{name: "group arity", src: "// @lumen:group 0 0 uniform camera", want: "exactly five arguments"},
		{name: "bad group", src: "// @lumen:group x 0 uniform camera camera", want: "invalid group number"},
		{name: "bad address space", src: "// @lumen:group 0 0 storage camera camera", want: "unknown address space"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreProcessor().Process(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAnnotationOutsideCommentIsIgnored(t *testing.T) {
	src := `let s = "@lumen:include camera";`
	out, err := NewPreProcessor().Process(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}
