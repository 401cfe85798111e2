// Package request describes what a caller asks a picker for.
//
// Open configurations may be given as a single value or as an ordered list of
// groups. Only the first group may carry selection fields (start location,
// identifier, accept-all exclusion); later groups only add acceptable types.
package request

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/stackvity/fsaccess/internal/handle"
)

// DefaultFileName is suggested by saves that do not name their file.
const DefaultFileName = "Untitled"

// DefaultDescription labels filter groups that carry no description.
const DefaultDescription = "Files"

// Filter is one group of acceptable types.
type Filter struct {
	Description string
	MIMETypes   []string
	Extensions  []string
}

// Open is one open configuration group.
type Open struct {
	Description string
	MIMETypes   []string
	Extensions  []string

	// Selection fields, honored on the first group only.
	StartIn                handle.StartIn
	ID                     string
	ExcludeAcceptAllOption bool
}

// HasSelectionFields reports whether o sets any field reserved to the first group.
func (o Open) HasSelectionFields() bool {
	return !o.StartIn.IsZero() || o.ID != "" || o.ExcludeAcceptAllOption
}

func (o Open) filter() Filter {
	return Filter{Description: o.Description, MIMETypes: o.MIMETypes, Extensions: o.Extensions}
}

// OpenPlan is the merged shape both backends consume.
type OpenPlan struct {
	Filters                []Filter
	Multiple               bool
	StartIn                handle.StartIn
	ID                     string
	ExcludeAcceptAllOption bool
}

// NormalizeOpen merges groups into a plan. Selection fields are read from the
// first group only. No groups is the same as one empty group.
func NormalizeOpen(multiple bool, groups ...Open) OpenPlan {
	if len(groups) == 0 {
		groups = []Open{{}}
	}
	first := groups[0]
	plan := OpenPlan{
		Filters:                make([]Filter, 0, len(groups)),
		Multiple:               multiple,
		StartIn:                first.StartIn,
		ID:                     first.ID,
		ExcludeAcceptAllOption: first.ExcludeAcceptAllOption,
	}
	for _, g := range groups {
		plan.Filters = append(plan.Filters, g.filter())
	}
	return plan
}

// Save configures a save picker.
type Save struct {
	FileName    string
	Description string
	MIMETypes   []string
	Extensions  []string

	StartIn                handle.StartIn
	ID                     string
	ExcludeAcceptAllOption bool

	// ThrowIfExistingHandleNotGood makes a stale existing handle fail the save
	// instead of falling back to a fresh picker.
	ThrowIfExistingHandleNotGood bool
}

// SuggestedName returns FileName or DefaultFileName.
func (s Save) SuggestedName() string {
	if s.FileName == "" {
		return DefaultFileName
	}
	return s.FileName
}

// Entry is what a SkipDirectory predicate sees: a name and a kind, no path.
type Entry struct {
	Name string
	Kind handle.Kind
}

// Directory configures a directory picker.
type Directory struct {
	Recursive bool
	StartIn   handle.StartIn
	ID        string
	Mode      handle.Mode
	// SkipDirectory prunes every subtree whose directory entry it accepts.
	SkipDirectory func(Entry) bool
}

// AccessMode returns Mode, defaulting to read access.
func (d Directory) AccessMode() handle.Mode {
	if d.Mode == "" {
		return handle.ModeRead
	}
	return d.Mode
}

// Skips reports whether the directory called name should be pruned.
func (d Directory) Skips(name string) bool {
	return d.SkipDirectory != nil && d.SkipDirectory(Entry{Name: name, Kind: handle.KindDirectory})
}

// SkipGlobs builds a SkipDirectory predicate that accepts directories whose
// name matches any of patterns.
func SkipGlobs(patterns ...string) (func(Entry) bool, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid skip pattern '%s': %w", p, err)
		}
		globs = append(globs, g)
	}
	return func(e Entry) bool {
		if e.Kind != handle.KindDirectory {
			return false
		}
		for _, g := range globs {
			if g.Match(e.Name) {
				return true
			}
		}
		return false
	}, nil
}
