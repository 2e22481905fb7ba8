package ids

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
)

var (
	projectCodePattern = regexp.MustCompile(`^[A-Z]{1,5}$`)
	shortIDPattern     = regexp.MustCompile(`^([A-Z]{1,5})(?:-([A-Z]{1,5}))?-([0-9]+)$`)
)

// ShortID formats a PROJECT[-SUBPROJECT]-N alias.
func ShortID(projectCode, subprojectCode string, seq uint64) (string, error) {
	if !projectCodePattern.MatchString(projectCode) {
		return "", errs.New(errs.ValidationError, "project code %q must be 1-5 uppercase ASCII letters", projectCode)
	}
	if subprojectCode != "" && !projectCodePattern.MatchString(subprojectCode) {
		return "", errs.New(errs.ValidationError, "subproject code %q must be 1-5 uppercase ASCII letters", subprojectCode)
	}
	if seq == 0 {
		return "", errs.New(errs.ValidationError, "short-id sequence must be a positive integer, got 0")
	}
	if subprojectCode == "" {
		return fmt.Sprintf("%s-%d", projectCode, seq), nil
	}
	return fmt.Sprintf("%s-%s-%d", projectCode, subprojectCode, seq), nil
}

// ParseShortID splits a short-ID into its project code, optional
// subproject code, and sequence number.
func ParseShortID(s string) (projectCode, subprojectCode string, seq uint64, err error) {
	m := shortIDPattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", 0, errs.New(errs.ValidationError, "%q is not a valid short-id (expected PROJECT[-SUB]-N)", s)
	}
	n, perr := strconv.ParseUint(m[3], 10, 64)
	if perr != nil {
		return "", "", 0, errs.Wrap(errs.ValidationError, perr, "%q has an invalid sequence number", s)
	}
	return m[1], m[2], n, nil
}

// ExtractShortIDs returns candidate short-IDs referencing projectCode found
// in free text, boundary-delimited and case-insensitive so "LAT-4" does not
// match inside "LAT-42".
func ExtractShortIDs(text, projectCode string) []string {
	if projectCode == "" {
		return nil
	}
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(projectCode) + `(?:-[A-Za-z]{1,5})?-[0-9]+`)
	var out []string
	seen := map[string]bool{}
	for _, m := range pattern.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		if start > 0 && isBoundaryChar(text[start-1]) {
			continue
		}
		if end < len(text) && isBoundaryChar(text[end]) {
			continue
		}
		upper := strings.ToUpper(text[start:end])
		if !seen[upper] {
			seen[upper] = true
			out = append(out, upper)
		}
	}
	return out
}

// isBoundaryChar reports whether b extends an alphanumeric token, i.e. is
// NOT a delimiter. Used to reject matches that are substrings of a larger
// alphanumeric run, e.g. "LAT-4" inside "LAT-42".
func isBoundaryChar(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}
