// Package source reads the newline-delimited identifier list.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JakeFAU/jobdata-fetcher/internal/jobdata"
)

// ReadIdentifiers loads identifiers from path. Any failure to open or read the file
// is reported as jobdata.ErrSourceUnavailable.
func ReadIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("%w: %w", jobdata.ErrSourceUnavailable, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	ids, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", jobdata.ErrSourceUnavailable, path, err)
	}
	return ids, nil
}

// Parse returns one trimmed identifier per non-blank line, in input order.
func Parse(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan identifiers: %w", err)
	}
	return ids, nil
}
