package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json", "X-Request-Id": "req-9"},
		Body:       []byte(body),
		Duration:   150 * time.Millisecond,
	}
}

func TestExtract_BodyPaths(t *testing.T) {
	e := NewExtractor(jsonResponse(`{"code":200,"data":{"token":"abc123","items":[{"id":7},{"id":8}],"flags":{"a":true}}}`))

	tests := []struct {
		path string
		want value.Value
	}{
		{"data.token", value.StringValue("abc123")},
		{"code", value.NumberValue(200)},
		{"data.items.1.id", value.NumberValue(8)},
		{"data.items[0].id", value.NumberValue(7)},
		{"data.flags", value.MustFrom(map[string]any{"a": true})},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := e.Extract(tt.path)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, ok := e.Extract("data.missing")
	assert.False(t, ok)
	_, ok = e.Extract("data.items.5.id")
	assert.False(t, ok)
}

func TestExtract_Metadata(t *testing.T) {
	e := NewExtractor(jsonResponse(`{}`))

	status, ok := e.Extract("$status")
	require.True(t, ok)
	assert.Equal(t, float64(200), status.Number())

	dur, ok := e.Extract("$duration")
	require.True(t, ok)
	assert.Equal(t, float64(150), dur.Number())

	id, ok := e.Extract("$headers.x-request-id")
	require.True(t, ok)
	assert.Equal(t, "req-9", id.Str())

	_, ok = e.Extract("$headers.Missing")
	assert.False(t, ok)
}

func TestExtract_NonJSONBody(t *testing.T) {
	e := NewExtractor(&http.Response{StatusCode: 200, Body: []byte("pong")})

	whole, ok := e.Extract("")
	require.True(t, ok)
	assert.Equal(t, "pong", whole.Str())

	_, ok = e.Extract("data.id")
	assert.False(t, ok)
}

func TestExtractAll(t *testing.T) {
	resp := jsonResponse(`{"data":{"token":"tok-1","user":{"id":5}}}`)

	got, err := ExtractAll(resp, map[string]string{"token": "data.token", "user_id": "data.user.id"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got["token"].Str())
	assert.Equal(t, float64(5), got["user_id"].Number())
}

func TestExtractAll_MissingPath(t *testing.T) {
	resp := jsonResponse(`{"data":{"token":"tok-1"}}`)

	got, err := ExtractAll(resp, map[string]string{"a_token": "data.token", "b_id": "data.id"})
	var pathErr *ExtractionPathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "b_id", pathErr.Name)
	assert.Equal(t, "data.id", pathErr.Path)
	assert.Contains(t, got, "a_token")
}

func TestConvertBracketNotation(t *testing.T) {
	assert.Equal(t, "0.id", ConvertBracketNotation("[0].id"))
	assert.Equal(t, "items.0.tags.1", ConvertBracketNotation("items[0].tags[1]"))
	assert.Equal(t, "data.id", ConvertBracketNotation("data.id"))
}
