package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// Summary renders a markdown overview of the model: one table row per
// slice plus element and specification counts.
func Summary(name string, m *domain.Model) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)

	ordered := m.SlicesByIndex()
	if len(ordered) == 0 {
		sb.WriteString("_Empty model._\n")
		return sb.String()
	}

	elements := 0
	specs := 0
	sb.WriteString("| # | Slice | Type | Elements | Specs |\n")
	sb.WriteString("|---|-------|------|----------|-------|\n")
	for _, s := range ordered {
		n := len(s.Elements())
		elements += n
		specs += len(s.Specifications)
		fmt.Fprintf(&sb, "| %d | %s | %s | %d | %d |\n",
			s.Index, s.Title, s.SliceType, n, len(s.Specifications))
	}
	fmt.Fprintf(&sb, "\n**%d slices, %d elements, %d specifications.**\n",
		len(ordered), elements, specs)
	return sb.String()
}
