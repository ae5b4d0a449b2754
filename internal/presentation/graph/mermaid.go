// Package graph renders a blueprint as a Mermaid flowchart: one subgraph
// per slice, element shapes by type, arrows from the OUTBOUND half of
// every dependency pair.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// GenerateMermaid produces Mermaid flowchart syntax for the model.
// Semantic shapes:
//   - Command: [Rectangle]
//   - Event: ([Stadium])
//   - ReadModel: [(Cylinder)]
//   - Screen: [/Parallelogram/]
//   - Processor: [[Subroutine]]
func GenerateMermaid(m *domain.Model) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, s := range m.SlicesByIndex() {
		safeSlice := sanitizeMermaidID(s.ID)
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s (%s)\"]\n", safeSlice, escapeLabel(s.Title), s.SliceType))
		for _, el := range s.Elements() {
			opener, closer := shapeFor(el.Type)
			sb.WriteString(fmt.Sprintf("        %s%s\"%s\"%s\n", sanitizeMermaidID(el.ID), opener, escapeLabel(el.Title), closer))
		}
		sb.WriteString("    end\n")
	}

	// Edges after all subgraphs so cross-slice arrows resolve.
	for i := range m.Slices {
		for _, el := range m.Slices[i].Elements() {
			for _, d := range el.Dependencies {
				if d.Type != domain.DependencyOutbound {
					continue
				}
				sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(el.ID), sanitizeMermaidID(d.ID)))
			}
		}
	}

	return sb.String()
}

func shapeFor(t domain.ElementType) (string, string) {
	switch t {
	case domain.ElementEvent:
		return "([", "])"
	case domain.ElementReadModel:
		return "[(", ")]"
	case domain.ElementScreen:
		return "[/", "/]"
	case domain.ElementAutomation:
		return "[[", "]]"
	default:
		return "[", "]"
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
