package model

import "fmt"

// InputKind tells how a fixture input is turned into a FixtureSet.
type InputKind int

const (
	InlineMapping InputKind = iota + 1
	FilePath
	DirectoryPath
)

func (k InputKind) String() string {
	switch k {
	case InlineMapping:
		return "inline"
	case FilePath:
		return "file"
	case DirectoryPath:
		return "directory"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// FixtureSource is a fixture input after classification. Exactly one of Inline
// and Path is meaningful, depending on Kind.
type FixtureSource struct {
	Kind   InputKind
	Inline FixtureSet
	Path   string
}

// Describe is a short human readable form used in logs and events.
func (s FixtureSource) Describe() string {
	if s.Kind == InlineMapping {
		return fmt.Sprintf("inline(%d collections)", len(s.Inline))
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.Path)
}
