package types

// Resolution says where the content to republish lives. Either Path or the
// Repo and Ref pair is always set.
type Resolution struct {
	Kind    ResolutionKind `json:"kind"`
	Path    string         `json:"path,omitempty"`
	Repo    string         `json:"repo,omitempty"`
	Ref     string         `json:"ref,omitempty"`
	Version string         `json:"version,omitempty"`
}

func (r Resolution) Valid() bool {
	return r.Path != "" || (r.Repo != "" && r.Ref != "")
}

// Location returns the most specific locator: the asset path when present,
// otherwise repo@ref.
func (r Resolution) Location() string {
	if r.Path != "" {
		return r.Path
	}
	return r.Repo + "@" + r.Ref
}
