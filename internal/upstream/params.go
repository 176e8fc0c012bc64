package upstream

import (
	"net/url"
	"strings"
)

// Params is an ordered query-string builder. Keys are emitted in insertion
// order and only values that were explicitly added are ever encoded.
type Params struct {
	pairs []pair
}

type pair struct {
	key   string
	value string
}

// Add appends key=value unconditionally, including an empty value.
func (p *Params) Add(key, value string) *Params {
	p.pairs = append(p.pairs, pair{key: key, value: value})
	return p
}

// AddIfPresent appends key=value only when value is non-empty.
func (p *Params) AddIfPresent(key, value string) *Params {
	if value == "" {
		return p
	}
	return p.Add(key, value)
}

// Len reports the number of pairs.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.pairs)
}

// Get returns the first value stored under key.
func (p *Params) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, kv := range p.pairs {
		if kv.key == key {
			return kv.value, true
		}
	}
	return "", false
}

// Encode renders the pairs as a URL query string without the leading '?'.
// Unlike url.Values.Encode the original order is kept.
func (p *Params) Encode() string {
	if p.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.value))
	}
	return b.String()
}
