package serial

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	type sample struct {
		A string `json:"a"`
		B int    `json:"b"`
	}
	h1, err := Hash(sample{A: "x", B: 1})
	require.NoError(t, err)
	h2, err := Hash(sample{A: "x", B: 1})
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	h3, err := Hash(sample{A: "x", B: 2})
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestPyFloatFormatting(t *testing.T) {
	cases := map[float64]string{
		256.0:  "256.0",
		0.5:    "0.5",
		1.0:    "1.0",
		128.25: "128.25",
	}
	for in, want := range cases {
		b, err := json.Marshal(PyFloat(in))
		require.NoError(t, err)
		require.Equal(t, want, string(b))
	}
}

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)
	require.Equal(t, []string{"z", "a", "m"}, m.Keys())

	b, err := m.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `{"z":1,"a":2,"m":3}`, string(b))

	var m2 OrderedMap[int]
	require.NoError(t, m2.UnmarshalJSON(b))
	require.Equal(t, []string{"z", "a", "m"}, m2.Keys())
	v, ok := m2.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestOrderedMapPrefix(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	p := m.Prefix(2)
	require.Equal(t, []string{"a", "b"}, p.Keys())
}
