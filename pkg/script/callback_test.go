package script

import (
	"testing"

	"github.com/d5/tengo/v2"
	"github.com/stretchr/testify/assert"

	"github.com/glorpus-work/fetchurl/pkg/fetch"
)

func TestOutcomeArgs(t *testing.T) {
	req := &Request{}

	ok := outcomeArgs(req, fetch.Outcome{OK: true, Body: []byte("data"), Code: 200})
	assert.Len(t, ok, 2)
	assert.Equal(t, "data", ok[1].(*tengo.String).Value)

	failed := outcomeArgs(req, fetch.Outcome{Err: fetch.FailureMarker, Code: 500})
	assert.Len(t, failed, 4)
	assert.Equal(t, tengo.UndefinedValue, failed[1])
	assert.Equal(t, "failed", failed[2].(*tengo.String).Value)
	assert.Equal(t, int64(500), failed[3].(*tengo.Int).Value)
}

func TestFitArgs(t *testing.T) {
	args := []tengo.Object{&tengo.Int{Value: 1}, &tengo.Int{Value: 2}}

	tests := []struct {
		name string
		fn   *tengo.CompiledFunction
		want int
	}{
		{"exact", &tengo.CompiledFunction{NumParameters: 2}, 2},
		{"trimmed", &tengo.CompiledFunction{NumParameters: 1}, 1},
		{"padded", &tengo.CompiledFunction{NumParameters: 4}, 4},
		{"variadic untouched", &tengo.CompiledFunction{NumParameters: 1, VarArgs: true}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fitArgs(tt.fn, args)
			assert.Len(t, got, tt.want)
			for i := len(args); i < len(got); i++ {
				assert.Equal(t, tengo.UndefinedValue, got[i])
			}
		})
	}
}

func TestRequestObject(t *testing.T) {
	a := &Request{}
	b := &Request{}
	assert.Equal(t, RequestTypeName, a.TypeName())
	assert.True(t, a.Equals(a.Copy()))
	assert.True(t, a.Equals(b), "both wrap the same nil request")
	assert.False(t, a.Equals(tengo.UndefinedValue))
	assert.False(t, a.IsFalsy())

	m, err := a.IndexGet(&tengo.String{Value: "isActive"})
	assert.NoError(t, err)
	assert.True(t, m.CanCall())

	missing, err := a.IndexGet(&tengo.String{Value: "nope"})
	assert.NoError(t, err)
	assert.Equal(t, tengo.UndefinedValue, missing)

	_, err = a.IndexGet(&tengo.Int{Value: 1})
	assert.ErrorIs(t, err, tengo.ErrInvalidIndexType)
}
