package pbc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ConcatenatesRepeatedFields(t *testing.T) {
	var acc Body
	acc = Merge(acc, Body{"keys": []any{"a"}})
	acc = Merge(acc, Body{"keys": []any{"b"}})
	acc = Merge(acc, Body{FieldDone: true}.WithoutDone())

	assert.Equal(t, Body{"keys": []any{"a", "b"}}, acc)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		frames []Body
		want   Body
	}{
		{
			name:   "scalar last write wins",
			frames: []Body{{"continuation": "c1"}, {"continuation": "c2"}},
			want:   Body{"continuation": "c2"},
		},
		{
			name:   "bytes are scalars",
			frames: []Body{{"vclock": []byte("a")}, {"vclock": []byte("b")}},
			want:   Body{"vclock": []byte("b")},
		},
		{
			name:   "typed slices concatenate",
			frames: []Body{{"buckets": []string{"a", "b"}}, {"buckets": []string{"c"}}},
			want:   Body{"buckets": []string{"a", "b", "c"}},
		},
		{
			name:   "nested bodies are replaced",
			frames: []Body{{"props": Body{"n_val": uint32(3)}}, {"props": Body{"allow_mult": true}}},
			want:   Body{"props": Body{"allow_mult": true}},
		},
		{
			name: "mixed fields",
			frames: []Body{
				{"keys": []any{"k1"}, "results": []any{Body{"key": "t1"}}},
				{"keys": []any{"k2", "k3"}, "continuation": "next"},
			},
			want: Body{
				"keys":         []any{"k1", "k2", "k3"},
				"results":      []any{Body{"key": "t1"}},
				"continuation": "next",
			},
		},
		{
			name:   "mismatched kinds overwrite",
			frames: []Body{{"value": []any{"a"}}, {"value": "b"}},
			want:   Body{"value": "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acc Body
			for _, f := range tt.frames {
				acc = Merge(acc, f)
			}
			assert.Equal(t, tt.want, acc)
		})
	}
}

func TestMerge_DoesNotAliasFrameSlices(t *testing.T) {
	first := Body{"keys": make([]any, 1, 8)}
	first["keys"].([]any)[0] = "a"

	acc := Merge(nil, first)
	acc = Merge(acc, Body{"keys": []any{"b"}})

	assert.Equal(t, []any{"a", "b"}, acc["keys"])
	assert.Equal(t, []any{"a"}, first["keys"])
	assert.Nil(t, first["keys"].([]any)[:2][1])
}

func TestBody_Done(t *testing.T) {
	assert.True(t, Body{"done": true}.Done())
	assert.False(t, Body{"done": false}.Done())
	assert.False(t, Body{}.Done())
	assert.False(t, Body{"done": "true"}.Done())
}

func TestBody_WithoutDone(t *testing.T) {
	b := Body{"keys": []any{"a"}, "done": true}
	stripped := b.WithoutDone()

	assert.Equal(t, Body{"keys": []any{"a"}}, stripped)
	assert.Contains(t, b, "done")

	empty := Body{"done": true}.WithoutDone()
	assert.Empty(t, empty)
}

func TestBody_Err(t *testing.T) {
	assert.NoError(t, Body{"keys": []any{}}.Err())

	err := Body{"errmsg": []byte("not found"), "errcode": uint32(1)}.Err()
	require.Error(t, err)

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "not found", perr.Message)
	assert.Equal(t, uint32(1), perr.Code)
	assert.False(t, ShouldCloseConnection(err))

	err = Body{"errmsg": "boom"}.Err()
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "riakpb: server error: boom", err.Error())
}
