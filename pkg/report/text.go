package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteText writes the human-readable report. Sections with nothing to say
// are omitted.
func WriteText(w io.Writer, s *Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Dependency report for %s\n", s.Root)
	fmt.Fprintf(&b, "Run %s at %s\n\n", s.RunID, s.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	fmt.Fprintf(&b, "Files discovered:  %d\n", s.NodeCount)
	fmt.Fprintf(&b, "Edges:             %d\n", s.EdgeCount)
	fmt.Fprintf(&b, "Resolved:          %d\n", s.ResolvedCount)
	if s.ErrorCount > 0 {
		fmt.Fprintf(&b, "Read failures:     %d\n", s.ErrorCount)
	}
	if s.UnreadCount > 0 {
		fmt.Fprintf(&b, "Never read:        %d\n", s.UnreadCount)
	}
	if s.UnresolvedRefs > 0 {
		fmt.Fprintf(&b, "Unresolved refs:   %d\n", s.UnresolvedRefs)
	}
	if s.DynamicRefs > 0 {
		fmt.Fprintf(&b, "Dynamic refs:      %d\n", s.DynamicRefs)
	}
	if s.MalformedRefs > 0 {
		fmt.Fprintf(&b, "Malformed refs:    %d\n", s.MalformedRefs)
	}

	if len(s.Cycles) > 0 {
		fmt.Fprintf(&b, "\nCycles (%d):\n", len(s.Cycles))
		for _, c := range s.Cycles {
			fmt.Fprintf(&b, "  %s\n", strings.Join(c.ExamplePath, " -> "))
		}
	}

	if len(s.Unresolved) > 0 {
		b.WriteString("\nUnresolved references:\n")
		for _, key := range sortedKeys(s.Unresolved) {
			fmt.Fprintf(&b, "  %s: %s\n", key, strings.Join(s.Unresolved[key], ", "))
		}
	}

	if len(s.Errors) > 0 {
		b.WriteString("\nRead failures:\n")
		for _, key := range sortedKeys(s.Errors) {
			fmt.Fprintf(&b, "  %s: %s\n", key, s.Errors[key])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
