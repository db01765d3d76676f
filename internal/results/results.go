// Package results aggregates classification records for a run, persists them
// as a JSON array, and renders filtered views.
package results

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fpang/asset-classifier/internal/chat"
	"github.com/fpang/asset-classifier/internal/jsonutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
)

// Indent is the indentation used for the output file and displayed results.
const Indent = "    "

// ErrPersist is returned when the output file cannot be written.
var ErrPersist = errors.New("failed to persist results")

// Set is the ordered collection of successful classifications for one run.
// Records keep processing order; exhausted assets never appear.
type Set struct {
	records []chat.ClassificationResult
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Add appends one record.
func (s *Set) Add(r chat.ClassificationResult) {
	s.records = append(s.records, r)
}

// Records returns a copy of the records in insertion order.
func (s *Set) Records() []chat.ClassificationResult {
	out := make([]chat.ClassificationResult, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Set) Len() int {
	return len(s.records)
}

// Write serializes the whole set to path, overwriting any existing file.
// Non-ASCII text is written verbatim. The set is unchanged on failure.
func (s *Set) Write(path string) error {
	data, err := Encode(s.records)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersist, path, err)
	}

	log.Info().
		Int("records", len(s.records)).
		Str("path", path).
		Msg("Results written")
	return nil
}

// Filter returns the records matching token without modifying the set.
//
// A record matches when token equals one of its additional tags exactly, or
// when token appears, ignoring case, within its category or main theme.
// An empty token matches every record.
func (s *Set) Filter(token string) []chat.ClassificationResult {
	if token == "" {
		return s.Records()
	}

	folder := cases.Fold()
	needle := folder.String(token)

	var out []chat.ClassificationResult
	for _, r := range s.records {
		if matches(r, token, needle, folder) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r chat.ClassificationResult, token, needle string, folder cases.Caser) bool {
	for _, tag := range r.AdditionalTags {
		if tag == token {
			return true
		}
	}
	return strings.Contains(folder.String(r.Category), needle) ||
		strings.Contains(folder.String(r.MainTheme), needle)
}

// Display writes the filtered view for token, or every record when token is empty.
func (s *Set) Display(w io.Writer, token string) error {
	if token == "" {
		fmt.Fprintf(w, "\n--- All processed results (unfiltered, %d) ---\n", s.Len())
		return writeJSON(w, s.records)
	}

	filtered := s.Filter(token)
	fmt.Fprintf(w, "\n--- Filtered results (%d) ---\n", len(filtered))
	if len(filtered) == 0 {
		_, err := fmt.Fprintf(w, "No asset matched %q by tag, category, or theme.\n", token)
		return err
	}
	return writeJSON(w, filtered)
}

// Encode renders records as an indented JSON array with non-ASCII kept verbatim.
// A nil slice encodes as an empty array.
func Encode(records []chat.ClassificationResult) ([]byte, error) {
	if records == nil {
		records = []chat.ClassificationResult{}
	}
	return jsonutil.MarshalVerbatim(records, Indent)
}

func writeJSON(w io.Writer, records []chat.ClassificationResult) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
