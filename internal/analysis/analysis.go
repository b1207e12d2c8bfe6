// Package analysis defines the typed pipeline input/output model and the
// boundary logic that turns raw model text into a trusted Result: code-fence
// stripping, strict JSON Schema validation, and cross-referential filtering
// of project references the model invented.
package analysis

// Mode selects the pipeline variant.
type Mode string

const (
	// ModeCategorize groups the input projects into résumé roles.
	ModeCategorize Mode = "roles"
	// ModeSummarize produces a professional summary paragraph only.
	ModeSummarize Mode = "summary"
)

// Project is one caller-supplied source-control item the model may reference.
type Project struct {
	Name          string   `json:"name"`
	FullName      string   `json:"full_name,omitempty"` // "owner/name"; secondary match key
	Description   string   `json:"description,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	Topics        []string `json:"topics,omitempty"`
	ReadmeExcerpt string   `json:"readme_excerpt,omitempty"`
}

// Profile carries the free-text user fields. These are untrusted and must
// pass through sanitization before any prompt interpolation.
type Profile struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// Role is a résumé role produced by the model. Projects holds the names of
// input projects backing the role; after filtering, every entry is guaranteed
// to reference a caller-supplied project.
type Role struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Projects    []string `json:"projects"`
	Skills      []string `json:"skills"`
}

// Result is the validated, filtered pipeline output.
type Result struct {
	Summary string `json:"summary"`
	Roles   []Role `json:"roles,omitempty"`
}
