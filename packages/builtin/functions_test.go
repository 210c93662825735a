package builtin

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRegistry() *Registry {
	r := NewRegistry()
	r.now = func() time.Time { return time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC) }
	return r
}

func TestCall_Time(t *testing.T) {
	r := fixedRegistry()

	tests := []struct {
		expr string
		want string
	}{
		{"now()", "2024-03-05T10:30:00Z"},
		{"timestamp()", "1709634600"},
		{"timestampMs()", "1709634600000"},
		{"date()", "2024-03-05"},
		{"date('02/01/2006')", "05/03/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok, err := r.Call(tt.expr)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCall_UUID(t *testing.T) {
	got, ok, err := NewRegistry().Call("uuid()")
	require.NoError(t, err)
	require.True(t, ok)
	_, perr := uuid.Parse(got)
	assert.NoError(t, perr)
}

func TestCall_Random(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 20; i++ {
		got, _, err := r.Call("random(5, 7)")
		require.NoError(t, err)
		n, err := strconv.Atoi(got)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 5)
		assert.LessOrEqual(t, n, 7)
	}

	_, ok, err := r.Call("random(a, 7)")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestCall_Strings(t *testing.T) {
	r := NewRegistry()

	got, _, err := r.Call("randomString(12)")
	require.NoError(t, err)
	assert.Len(t, got, 12)

	got, _, err = r.Call(`base64("user:pass")`)
	require.NoError(t, err)
	assert.Equal(t, "dXNlcjpwYXNz", got)

	got, _, err = r.Call("urlEncode('a b&c')")
	require.NoError(t, err)
	assert.Equal(t, "a+b%26c", got)

	_, _, err = r.Call("base64()")
	assert.Error(t, err)
}

func TestCall_NotAFunction(t *testing.T) {
	r := NewRegistry()

	_, ok, err := r.Call("token")
	assert.False(t, ok)
	assert.NoError(t, err)

	_, ok, _ = r.Call("missing()")
	assert.False(t, ok)
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b, c", "d"}, parseArgs(`a, "b, c", 'd'`))
	assert.Nil(t, parseArgs(""))
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("tenant", func([]string) (string, error) { return "acme", nil })
	got, ok, err := r.Call("tenant()")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "acme", got)
	assert.Contains(t, r.Names(), "tenant")
}
