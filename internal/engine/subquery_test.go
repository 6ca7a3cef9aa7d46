package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryString(t *testing.T) {
	params := parseQueryString("name=United+States&c:sort=name&name=%21Canada")
	require.Len(t, params, 2)
	assert.Equal(t, Param{Field: "name", Values: []string{"United States", "!Canada"}}, params[0])
	assert.Equal(t, Param{Field: "c:sort", Values: []string{"name"}}, params[1])
}

func TestParseQueryStringOrder(t *testing.T) {
	// Repeated keys merge at their first occurrence; commands depend
	// on that for their relative ordering.
	params := parseQueryString("a=1&b=2&a=3")
	require.Len(t, params, 2)
	assert.Equal(t, "a", params[0].Field)
	assert.Equal(t, []string{"1", "3"}, params[0].Values)
	assert.Equal(t, "b", params[1].Field)
}

func TestParseQueryStringEdgeCases(t *testing.T) {
	assert.Empty(t, parseQueryString(""))

	params := parseQueryString("&flag&k=")
	require.Len(t, params, 2)
	assert.Equal(t, Param{Field: "flag", Values: []string{""}}, params[0])
	assert.Equal(t, Param{Field: "k", Values: []string{""}}, params[1])

	// A broken percent escape stays verbatim instead of failing the
	// whole request.
	params = parseQueryString("name=%zz")
	require.Len(t, params, 1)
	assert.Equal(t, []string{"%zz"}, params[0].Values)
}

func TestParseSubquery(t *testing.T) {
	params, err := parseSubquery("field=rivers|show=name'length|filters=length=>300", "|", "'")
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, Param{Field: "field", Values: []string{"rivers"}}, params[0])
	assert.Equal(t, Param{Field: "show", Values: []string{"name", "length"}}, params[1])
	assert.Equal(t, Param{Field: "filters", Values: []string{"length=>300"}}, params[2])
}

func TestParseSubqueryRepeatedKeys(t *testing.T) {
	params, err := parseSubquery("filters=a=1|filters=b=2", "|", "'")
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, []string{"a=1", "b=2"}, params[0].Values)
}

func TestParseSubqueryMissingEqual(t *testing.T) {
	_, err := parseSubquery("field=rivers|oops", "|", "'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "received 'oops'")
}
