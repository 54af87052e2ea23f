// Package marker implements the asset marker contract: the textual token
// that binds a content block to an anchored asset.
//
// A marker is the substring "[[asset_id]]", always immediately followed
// by a line break. The id pattern is the single source of truth for the
// format; injection and every downstream validator scan markers through
// this package, so the contract has exactly one implementation.
package marker

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// idPattern is the marker id contract: lowercase alphanumerics, hyphen
// and underscore only.
var (
	idPattern     = regexp.MustCompile(`\[\[([a-z0-9\-_]+)\]\]`)
	fullIDPattern = regexp.MustCompile(`^[a-z0-9\-_]+$`)

	// anyPattern matches any bracketed token, including malformed ids,
	// so format violations can be detected rather than skipped.
	anyPattern = regexp.MustCompile(`\[\[([^\[\]]*)\]\]`)
)

// Format renders the marker token for an asset id
func Format(assetID string) string {
	return "[[" + assetID + "]]"
}

// ValidID reports whether the id satisfies the marker id pattern
func ValidID(id string) bool {
	return fullIDPattern.MatchString(id)
}

// Contains reports whether the exact marker for the id is present in
// the content. Content is NFC-normalized before matching so equal text
// always compares equal.
func Contains(content, assetID string) bool {
	target := Format(assetID)
	for _, id := range FindIDs(content) {
		if Format(id) == target {
			return true
		}
	}
	return false
}

// FindIDs returns every well-formed marker id in the content, in
// document order, including repeats.
func FindIDs(content string) []string {
	var ids []string
	for _, m := range idPattern.FindAllStringSubmatch(norm.NFC.String(content), -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// FindMalformed returns every bracketed token whose interior does not
// satisfy the id pattern (uppercase, disallowed characters, empty).
func FindMalformed(content string) []string {
	var bad []string
	for _, m := range anyPattern.FindAllStringSubmatch(norm.NFC.String(content), -1) {
		if !ValidID(m[1]) {
			bad = append(bad, m[1])
		}
	}
	return bad
}
