// Package mapper transforms a parsed document into the destination
// record shape: schema-driven field mapping, type coercion, and the
// slug/excerpt derivations.
package mapper

// Kind is the destination type of a mapped field.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindDate
	KindList
)

// FieldSpec declares one destination field and the frontmatter key it
// maps from. Source may be dotted ("seo.title").
type FieldSpec struct {
	Name     string
	Source   string
	Kind     Kind
	Required bool
	// Delimiter joins list values into a single string. Empty means the
	// destination wants a native list.
	Delimiter string
}

// Schema is the destination collection's shape plus the derivation and
// control-field wiring.
type Schema struct {
	Fields []FieldSpec

	// Slug destination and its sources: SlugSource verbatim when present,
	// otherwise derived from TitleSource.
	SlugField   string
	SlugSource  string
	TitleSource string

	// Rendered-body destination.
	BodyField string

	// Excerpt destination: ExcerptSource verbatim when present, otherwise
	// derived from the rendered body and truncated to ExcerptMax.
	ExcerptField  string
	ExcerptSource string
	ExcerptMax    int

	// Control fields read from frontmatter.
	IDSource        string // bound external identifier
	PublishedSource string // draft state is its negation
	SyncSource      string // documents opt in to syncing with this flag
}

// DefaultSchema is the Webflow-flavored blog-post collection shape.
func DefaultSchema() *Schema {
	return &Schema{
		Fields: []FieldSpec{
			{Name: "name", Source: "title", Kind: KindString, Required: true},
			{Name: "date", Source: "date", Kind: KindDate, Required: true},
			{Name: "tags", Source: "tags", Kind: KindList},
			{Name: "featured", Source: "featured", Kind: KindBool},
			{Name: "seo-title", Source: "seo.title", Kind: KindString},
			{Name: "seo-description", Source: "seo.description", Kind: KindString},
		},
		SlugField:       "slug",
		SlugSource:      "slug",
		TitleSource:     "title",
		BodyField:       "post-body",
		ExcerptField:    "excerpt",
		ExcerptSource:   "excerpt",
		ExcerptMax:      160,
		IDSource:        "post_id",
		PublishedSource: "published",
		SyncSource:      "push_to_webflow",
	}
}
