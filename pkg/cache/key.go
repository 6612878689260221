package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies one cached page response.
type Key struct {
	// URL is the endpoint URL without query parameters.
	URL string

	// Params are the query parameters of the request, pagination
	// parameter included.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: apietl:<url>:param1=val1:param2=val2
//
// Parameters are sorted by name so the key is independent of map
// iteration order.
func (k Key) String() string {
	parts := []string{"apietl", k.URL}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}
