// Package redirect builds redirect targets from path templates and attributes.
package redirect

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingAttribute is returned when a template placeholder has no attribute.
var ErrMissingAttribute = errors.New("missing redirect attribute")

// ErrMalformedTemplate is returned for unbalanced placeholder braces.
var ErrMalformedTemplate = errors.New("malformed redirect template")

type attribute struct {
	key   string
	value string
}

// Attributes holds redirect key/value pairs in insertion order.
// Keys named by a {placeholder} in the template are substituted into the
// path; the rest become query parameters.
type Attributes struct {
	attrs []attribute
}

// NewAttributes creates an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{}
}

// Add sets key to the string form of value, replacing an earlier value for
// the same key without changing its position.
func (a *Attributes) Add(key string, value any) *Attributes {
	v := fmt.Sprint(value)
	for i := range a.attrs {
		if a.attrs[i].key == key {
			a.attrs[i].value = v
			return a
		}
	}
	a.attrs = append(a.attrs, attribute{key: key, value: v})
	return a
}

// Get returns the value stored for key.
func (a *Attributes) Get(key string) (string, bool) {
	for _, attr := range a.attrs {
		if attr.key == key {
			return attr.value, true
		}
	}
	return "", false
}

// Expand renders the redirect target for template.
func (a *Attributes) Expand(template string) (string, error) {
	used := make(map[string]bool)

	var path strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return "", fmt.Errorf("%w: %q", ErrMalformedTemplate, template)
			}
			path.WriteString(rest)
			break
		}

		end := strings.IndexByte(rest[open:], '}')
		if end < 0 || strings.IndexByte(rest[:open], '}') >= 0 {
			return "", fmt.Errorf("%w: %q", ErrMalformedTemplate, template)
		}
		end += open

		key := rest[open+1 : end]
		value, ok := a.Get(key)
		if !ok {
			return "", fmt.Errorf("%w: %q in %q", ErrMissingAttribute, key, template)
		}

		path.WriteString(rest[:open])
		path.WriteString(url.PathEscape(value))
		used[key] = true
		rest = rest[end+1:]
	}

	var query []string
	for _, attr := range a.attrs {
		if used[attr.key] {
			continue
		}
		query = append(query, url.QueryEscape(attr.key)+"="+url.QueryEscape(attr.value))
	}

	if len(query) == 0 {
		return path.String(), nil
	}

	return path.String() + "?" + strings.Join(query, "&"), nil
}
