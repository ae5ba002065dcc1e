// Package extract scans raw source text for module-inclusion statements.
//
// The scanner is tolerant by design: decompiler output is frequently
// malformed, so a reference that cannot be statically determined is tagged
// rather than rejected, and scanning never fails.
package extract

import (
	"regexp"
	"strings"
)

// Kind classifies a scanned reference.
type Kind int

const (
	// KindIdentifier is a statically determined logical identifier.
	KindIdentifier Kind = iota
	// KindDynamic is a reference whose argument is built at runtime
	// (a variable, concatenation, function call). Counted for reporting,
	// never followed.
	KindDynamic
	// KindMalformed is a literal argument that is not a valid dot-separated
	// identifier. Skipped like a dynamic reference but reported separately.
	KindMalformed
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindDynamic:
		return "dynamic"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Reference is one scanned module-inclusion statement.
type Reference struct {
	// Kind tags how the argument was classified.
	Kind Kind
	// Identifier is the logical identifier for KindIdentifier, empty otherwise.
	Identifier string
	// Raw is the argument text as it appeared in the source.
	Raw string
}

// Call forms handled by the scanner, tried in source order so output
// preserves encounter order:
//
//	require("a.b.c")   require('a.b.c')
//	require "a.b.c"    require 'a.b.c'
//	require(expr)      -- dynamic
var (
	requirePattern = regexp.MustCompile(`require\s*(?:\(\s*([^()]*?)\s*\)|[ \t]+(["'][^"']*["']))`)
	identPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

// Scan returns every module reference in src, in encounter order. Duplicates
// are preserved; deduplication happens when edges are added to the graph.
func Scan(src string) []Reference {
	matches := requirePattern.FindAllStringSubmatch(src, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		arg := m[1]
		if arg == "" {
			arg = m[2]
		}
		refs = append(refs, classify(arg))
	}
	return refs
}

// Identifiers filters refs down to the statically determined identifiers,
// preserving order and duplicates.
func Identifiers(refs []Reference) []string {
	var ids []string
	for _, r := range refs {
		if r.Kind == KindIdentifier {
			ids = append(ids, r.Identifier)
		}
	}
	return ids
}

// Count returns the number of references of the given kind.
func Count(refs []Reference, kind Kind) int {
	n := 0
	for _, r := range refs {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

func classify(arg string) Reference {
	trimmed := strings.TrimSpace(arg)

	quoted := len(trimmed) >= 2 &&
		(trimmed[0] == '"' || trimmed[0] == '\'') &&
		trimmed[len(trimmed)-1] == trimmed[0]
	if !quoted {
		return Reference{Kind: KindDynamic, Raw: trimmed}
	}

	name := trimmed[1 : len(trimmed)-1]
	if !identPattern.MatchString(name) {
		return Reference{Kind: KindMalformed, Raw: trimmed}
	}
	return Reference{Kind: KindIdentifier, Identifier: name, Raw: trimmed}
}
