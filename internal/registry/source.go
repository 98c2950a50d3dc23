package registry

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Format selects the syntax of a Source.
type Format int

const (
	// FormatAssignments is the line oriented `key.path = value` syntax.
	FormatAssignments Format = iota
	// FormatYAML is a YAML document of (possibly dotted) nested mappings.
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "assignments"
}

// Source is a declarative override document.
type Source struct {
	Name   string
	Format Format
	Data   []byte
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAssignments
	}
}

// SourceFromFile reads path from the OS filesystem into a Source.
func SourceFromFile(path string) (Source, error) {
	return SourceFromFs(afero.NewOsFs(), path)
}

// SourceFromFs reads path from fsys into a Source. Read failures are
// *ReadError.
func SourceFromFs(fsys afero.Fs, path string) (Source, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Source{}, &ReadError{Source: path, Err: err}
	}
	return Source{Name: path, Format: FormatForPath(path), Data: data}, nil
}

// assignment is one parsed statement before it is applied to the tree.
type assignment struct {
	path  KeyPath
	value any
	line  int
}

func (s Source) parse() ([]assignment, error) {
	switch s.Format {
	case FormatAssignments:
		return parseAssignments(s.Name, s.Data)
	case FormatYAML:
		return parseYAML(s.Name, s.Data)
	default:
		return nil, &ParseError{Source: s.Name, Msg: fmt.Sprintf("unknown source format %d", s.Format)}
	}
}
