package cache

import (
	"sort"
	"strings"
	"time"
)

type TTLClass string

const (
	// ClassStatic is near-static layout and translation data.
	ClassStatic TTLClass = "static"
	// ClassContent is descriptive airport/airline content.
	ClassContent TTLClass = "content"
	// ClassPricing is computed pricing and availability.
	ClassPricing TTLClass = "pricing"
)

type TTLs struct {
	Static  time.Duration
	Content time.Duration
	Pricing time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Static:  24 * time.Hour,
		Content: 6 * time.Hour,
		Pricing: 15 * time.Minute,
	}
}

func (t TTLs) For(class TTLClass) time.Duration {
	switch class {
	case ClassStatic:
		return t.Static
	case ClassContent:
		return t.Content
	default:
		return t.Pricing
	}
}

const (
	resourceSep = "|"
	paramSep    = "="
)

// keyEscaper percent-encodes separators and glob characters. It is a
// single-pass replacer that also encodes "%", so distinct inputs stay
// distinct.
var keyEscaper = strings.NewReplacer(
	"%", "%25",
	"|", "%7C",
	"=", "%3D",
	":", "%3A",
	"*", "%2A",
	"?", "%3F",
	"[", "%5B",
	"]", "%5D",
	"\\", "%5C",
	" ", "%20",
)

// BuildKey composes a deterministic key from the resource name and every
// parameter that affects the response: "<ns>:<resource>|k=v|k=v", params
// sorted by name.
func BuildKey(namespace, resource string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	if namespace != "" {
		b.WriteString(namespace)
		b.WriteString(":")
	}
	b.WriteString(keyEscaper.Replace(resource))
	for _, name := range names {
		b.WriteString(resourceSep)
		b.WriteString(keyEscaper.Replace(name))
		b.WriteString(paramSep)
		b.WriteString(keyEscaper.Replace(strings.TrimSpace(params[name])))
	}
	return b.String()
}

// parseKey splits a key built by BuildKey. ok is false for foreign keys.
func parseKey(namespace, key string) (resource string, params map[string]string, ok bool) {
	if namespace != "" {
		var found bool
		key, found = strings.CutPrefix(key, namespace+":")
		if !found {
			return "", nil, false
		}
	}

	parts := strings.Split(key, resourceSep)
	params = make(map[string]string, len(parts)-1)
	for _, part := range parts[1:] {
		name, value, found := strings.Cut(part, paramSep)
		if !found {
			return "", nil, false
		}
		params[name] = value
	}
	return parts[0], params, true
}
