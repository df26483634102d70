// Package snapshot serializes query results for offline replay. The format
// (indented JSON) is not load-bearing; round-trip fidelity is the contract.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jobharvest/jobharvester/internal/scrape"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Encode renders a QueryResult so that Decode reconstructs it exactly.
func Encode(result scrape.QueryResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode reverses Encode.
func Decode(data []byte) (scrape.QueryResult, error) {
	var result scrape.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return scrape.QueryResult{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return result, nil
}

// ReadFile loads a snapshot previously written by a local store.
func ReadFile(path string) (scrape.QueryResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scrape.QueryResult{}, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(data)
}

// ObjectName derives a filesystem- and bucket-safe key for a result, scoped
// by scrape date.
func ObjectName(result scrape.QueryResult, at time.Time) string {
	parts := []string{result.Query.Term, result.Query.City, result.Query.State}
	for i, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		parts[i] = invalidFilenameChars.ReplaceAllString(p, "_")
	}
	return fmt.Sprintf("%s/%s.json", at.Format("2006-01-02"), strings.Join(parts, "_"))
}
