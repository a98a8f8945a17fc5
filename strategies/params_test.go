package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() []ParamSpec {
	wMin, wMax := rangeOf(2, 100)
	return []ParamSpec{
		{Key: "window", Kind: KindInt, Default: 20, Min: wMin, Max: wMax},
		{Key: "sigma", Kind: KindFloat, Default: 2.0},
		{Key: "fade", Kind: KindBool, Default: true},
		{Key: "label", Kind: KindString, Default: "x"},
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		kind    ParamKind
		want    any
		wantErr error
	}{
		{"int", "42", KindInt, 42, nil},
		{"int from float syntax", "3.9", KindInt, 3, nil},
		{"int garbage", "abc", KindInt, nil, ErrBadParam},
		{"float", "0.5", KindFloat, 0.5, nil},
		{"bool yes", "YES", KindBool, true, nil},
		{"bool off", "off", KindBool, false, nil},
		{"bool garbage", "maybe", KindBool, nil, ErrBadParam},
		{"string passthrough", " hi ", KindString, "hi", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Coerce(tc.value, tc.kind)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseKVList(t *testing.T) {
	schema := testSchema()

	out, err := ParseKVList([]string{"window=30", "sigma=1.5", "fade=no"}, schema)
	require.NoError(t, err)
	assert.Equal(t, 30, out["window"])
	assert.Equal(t, 1.5, out["sigma"])
	assert.Equal(t, false, out["fade"])

	_, err = ParseKVList([]string{"windows=30"}, schema)
	assert.ErrorIs(t, err, ErrUnknownParam)

	_, err = ParseKVList([]string{"window"}, schema)
	assert.ErrorIs(t, err, ErrBadParam)
}

func TestMergeParams(t *testing.T) {
	schema := testSchema()

	merged, err := MergeParams(map[string]any{"sigma": 3.0}, schema)
	require.NoError(t, err)
	assert.Equal(t, 20, merged["window"], "default fills missing keys")
	assert.Equal(t, 3.0, merged["sigma"])
	assert.Equal(t, true, merged["fade"])

	_, err = MergeParams(map[string]any{"window": 1}, schema)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = MergeParams(map[string]any{"window": 1000}, schema)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestTypedParamAccess(t *testing.T) {
	params := map[string]any{"window": 20, "sigma": 2.5, "evals": 7.0}
	assert.Equal(t, 20, IntParam(params, "window"))
	assert.Equal(t, 7, IntParam(params, "evals"), "sweep floats read back as ints")
	assert.Equal(t, 2.5, FloatParam(params, "sigma"))
	assert.Equal(t, 2.0, FloatParam(map[string]any{"sigma": 2}, "sigma"))
}
