package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeKey_Canonical(t *testing.T) {
	assert.Equal(t, `["slowQueries"]`, CompositeKey{"slowQueries"}.Canonical())
	assert.Equal(t, `["a","b"]`, CompositeKey{"a", "b"}.Canonical())
	assert.NotEqual(t, CompositeKey{"a", "b"}.Canonical(), CompositeKey{"b", "a"}.Canonical())
	assert.NotEqual(t, CompositeKey{"a,b"}.Canonical(), CompositeKey{"a", "b"}.Canonical())
	assert.Equal(t, `[]`, CompositeKey(nil).Canonical())
}

func TestCompositeKey_CanonicalKeepsRawBytes(t *testing.T) {
	assert.NotEqual(t, CompositeKey{"\xff"}.Canonical(), CompositeKey{"\xfe"}.Canonical())
	assert.NotEqual(t, CompositeKey{"\xff"}.Canonical(), CompositeKey{"\ufffd"}.Canonical())
	assert.NotEqual(t, CompositeKey{`a","b`}.Canonical(), CompositeKey{"a", "b"}.Canonical())
}

func TestGlobalErrorState_Sorted(t *testing.T) {
	s := GlobalErrorState{Errors: map[string]ErrorEntry{
		`["low"]`:  {Key: CompositeKey{"low"}, Priority: 1},
		`["high"]`: {Key: CompositeKey{"high"}, Priority: 10},
		`["b"]`:    {Key: CompositeKey{"b"}, Priority: 5},
		`["a"]`:    {Key: CompositeKey{"a"}, Priority: 5},
	}}

	var order []string
	for _, e := range s.Sorted() {
		order = append(order, e.Key[0])
	}
	assert.Equal(t, []string{"high", "a", "b", "low"}, order)

	top, ok := s.Top()
	assert.True(t, ok)
	assert.Equal(t, "high", top.Key[0])

	_, ok = GlobalErrorState{}.Top()
	assert.False(t, ok)
}
