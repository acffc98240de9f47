package learndot

import (
	"sort"
	"time"
)

// Learndot timestamps are ISO-8601-like, usually without the "T" separator
// (e.g. "2019-03-09 05:52:11"). Zone offsets and date-only values also occur.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339,
	"2006-01-02",
}

// sortKey orders enrolments by (expiryDate, modified-or-created), each
// component possibly empty. The zero-padded timestamp format makes plain
// string comparison agree with chronological order, so the key keeps the raw
// strings; validation happens at extraction.
type sortKey [2]string

// extractSortKey derives the sort key for an enrolment. The first component
// is the expiry date; enrolments lack one when their component has no expiry
// policy, in which case the modified date, then the created date, stand in as
// the second component. Non-empty components must parse as timestamps;
// anything else signals corrupted data upstream and fails with a *ParseError.
func extractSortKey(e Enrolment) (sortKey, error) {
	second := e.Modified
	if second == "" {
		second = e.Created
	}
	key := sortKey{e.ExpiryDate, second}

	for _, ds := range key {
		if ds == "" {
			continue
		}
		if err := validateTimestamp(ds); err != nil {
			return sortKey{}, err
		}
	}

	return key, nil
}

// compareSortKeys compares two keys component-wise. An empty component sorts
// after any non-empty one at the same position, so enrolments with no expiry
// information rank last. Non-empty components compare as plain strings, which
// is only correct because all inputs share the same zero-padded format.
// Returns -1, 0, or 1.
func compareSortKeys(a, b sortKey) int {
	for i := range a {
		ds1, ds2 := a[i], b[i]

		switch {
		case ds1 == "" && ds2 != "":
			return 1
		case ds1 != "" && ds2 == "":
			return -1
		case ds1 < ds2:
			return -1
		case ds1 > ds2:
			return 1
		}
	}
	return 0
}

// SortEnrolmentsByExpiry returns the enrolments stably sorted so the one with
// the latest expiry date is last. Keys are extracted up front, so a bad
// timestamp fails the whole sort before any reordering.
func SortEnrolmentsByExpiry(enrolments []Enrolment) ([]Enrolment, error) {
	type keyed struct {
		enrolment Enrolment
		key       sortKey
	}

	keyedList := make([]keyed, 0, len(enrolments))
	for _, e := range enrolments {
		k, err := extractSortKey(e)
		if err != nil {
			return nil, err
		}
		keyedList = append(keyedList, keyed{enrolment: e, key: k})
	}

	sort.SliceStable(keyedList, func(i, j int) bool {
		return compareSortKeys(keyedList[i].key, keyedList[j].key) < 0
	})

	sorted := make([]Enrolment, len(keyedList))
	for i, k := range keyedList {
		sorted[i] = k.enrolment
	}
	return sorted, nil
}

// validateTimestamp checks that a timestamp string is parseable. Years with
// more than four digits cannot be represented in the expected layouts and are
// reported as overflow rather than a plain parse failure.
func validateTimestamp(s string) error {
	if yearOverflows(s) {
		return &ParseError{Value: s, Overflow: true}
	}

	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return &ParseError{Value: s}
}

// yearOverflows reports whether the leading year digit run exceeds four
// digits.
func yearOverflows(s string) bool {
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		digits++
	}
	return digits > 4
}
