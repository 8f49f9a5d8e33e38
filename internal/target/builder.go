// Package target turns identifiers into request targets.
package target

import (
	"errors"
	"strings"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

// ErrEmptyBaseURL is returned when Build is called without a base URL.
var ErrEmptyBaseURL = errors.New("base url is required")

// Build joins baseURL and each identifier with a single "/". Output order and length
// match ids; identifiers are trimmed of surrounding whitespace but never dropped.
func Build(baseURL string, ids []string) ([]jobdata.Target, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrEmptyBaseURL
	}
	targets := make([]jobdata.Target, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		targets = append(targets, jobdata.Target{
			ID:  id,
			URL: base + "/" + strings.TrimLeft(id, "/"),
		})
	}
	return targets, nil
}
