package loam

// ModelMetadata is the typed frontmatter of a stored blueprint document.
// The body of the document holds the canonical JSON; the frontmatter is
// browsing metadata only and is regenerated on every save.
type ModelMetadata struct {
	Title      string `json:"title" mapstructure:"title"`
	SliceCount int    `json:"slice_count" mapstructure:"slice_count"`
	UpdatedAt  string `json:"updated_at" mapstructure:"updated_at"`
}
