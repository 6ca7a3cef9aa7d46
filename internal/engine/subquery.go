package engine

import (
	"fmt"
	"net/url"
	"strings"
)

// Param is one query parameter with every value it received, in
// encounter order.
type Param struct {
	Field  string
	Values []string
}

// parseQueryString decodes a raw query string into ordered parameters.
// Unlike url.ParseQuery it preserves first-occurrence key order, which
// commands depend on, and keeps a token verbatim when its percent
// escaping is broken instead of failing the whole request.
func parseQueryString(raw string) []Param {
	var params []Param
	index := make(map[string]int)

	for _, token := range strings.Split(raw, "&") {
		if token == "" {
			continue
		}
		key, value, _ := strings.Cut(token, "=")
		key = unescape(key)
		value = unescape(value)

		if i, ok := index[key]; ok {
			params[i].Values = append(params[i].Values, value)
			continue
		}
		index[key] = len(params)
		params = append(params, Param{Field: key, Values: []string{value}})
	}
	return params
}

func unescape(s string) string {
	u, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return u
}

// parseSubquery splits a nested query carried inside a single value.
// Pairs are separated by fieldSep and a pair's values by valueSep;
// repeated keys accumulate like in the outer query string.
func parseSubquery(raw, fieldSep, valueSep string) ([]Param, error) {
	var params []Param
	index := make(map[string]int)

	for _, pair := range strings.Split(raw, fieldSep) {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("a key/value pair must contain an equal '=', received '%s'", pair)
		}
		values := strings.Split(value, valueSep)

		if i, ok := index[key]; ok {
			params[i].Values = append(params[i].Values, values...)
			continue
		}
		index[key] = len(params)
		params = append(params, Param{Field: key, Values: values})
	}
	return params, nil
}
