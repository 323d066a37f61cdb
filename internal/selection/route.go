package selection

import (
	"strings"
)

const slugSeparator = "+"

// Slug joins the members with "+". The set is already sorted, so the slug is
// canonical.
func Slug(s Set) string {
	return strings.Join(s, slugSeparator)
}

// Path returns the route for s. The empty set maps to the root path.
func Path(s Set) string {
	return "/" + Slug(s)
}

// ParseSlug splits a "+"-joined slug into a set. An empty slug is the empty set.
func ParseSlug(slug string, limit int) Set {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Set{}
	}
	return From(strings.Split(slug, slugSeparator), limit)
}

// ParsePath decodes a route produced by Path. Leading and trailing slashes
// are ignored, so "/" and "" both decode to the empty set.
func ParsePath(path string, limit int) Set {
	return ParseSlug(strings.Trim(strings.TrimSpace(path), "/"), limit)
}

// ParseArgs decodes command-line arguments, each of which may be a single
// identifier or a "+"-joined slug.
func ParseArgs(args []string, limit int) Set {
	var ids []string
	for _, arg := range args {
		ids = append(ids, strings.Split(arg, slugSeparator)...)
	}
	return From(ids, limit)
}
