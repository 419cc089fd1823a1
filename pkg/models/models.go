package models

// PageMetadata describes a fetched page. Source is always set. The static
// strategy fills the remaining fields (with "not found" sentinels when the
// page lacks them); the rendered strategy captures only the source URL.
type PageMetadata struct {
	Source      string `json:"source" yaml:"source"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
}

// Document is one successfully fetched page: extracted content plus metadata.
// A loader yields at most one Document per input URL, in input order.
type Document struct {
	Content  string       `json:"content" yaml:"content"`
	Metadata PageMetadata `json:"metadata" yaml:"metadata"`
}
