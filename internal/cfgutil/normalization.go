// Copyright (c) 2015 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL returns the normalized form of an HTTP API root: scheme and
// host lower-cased, no trailing slash. An error is returned if the URL is
// not an absolute http or https URL.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", raw)
	}

	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// NormalizeURLs returns a new slice with all the passed URLs normalized,
// and all duplicates removed. The order of first appearance is kept.
func NormalizeURLs(urls []string) ([]string, error) {
	var (
		normalized = make([]string, 0, len(urls))
		seenSet    = make(map[string]struct{})
	)

	for _, raw := range urls {
		u, err := NormalizeURL(raw)
		if err != nil {
			return nil, err
		}
		if _, seen := seenSet[u]; !seen {
			normalized = append(normalized, u)
			seenSet[u] = struct{}{}
		}
	}

	return normalized, nil
}
