package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBlankFilePath    = errors.New("model: file relative path must not be blank")
	ErrInvalidFilePath  = errors.New("model: file relative path must be relative and forward-slash separated")
	ErrBlankProjectName = errors.New("model: project name must not be blank")
	ErrNoFiles          = errors.New("model: project must contain at least one file")
	ErrDuplicatePath    = errors.New("model: duplicate file relative path")
)

// File is one generated file of a project.
type File struct {
	relativePath string
	content      string
}

// NewFile validates the relative path: non-blank, forward slashes, no leading slash,
// no "." or ".." segments.
func NewFile(relativePath, content string) (File, error) {
	if strings.TrimSpace(relativePath) == "" {
		return File{}, ErrBlankFilePath
	}
	if strings.Contains(relativePath, `\`) || strings.HasPrefix(relativePath, "/") {
		return File{}, fmt.Errorf("%w: %q", ErrInvalidFilePath, relativePath)
	}
	for _, seg := range strings.Split(relativePath, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return File{}, fmt.Errorf("%w: %q", ErrInvalidFilePath, relativePath)
		}
	}
	return File{relativePath: relativePath, content: content}, nil
}

func (f File) RelativePath() string { return f.relativePath }
func (f File) Content() string      { return f.content }

func (f File) String() string {
	return fmt.Sprintf("File{path=%q size=%d}", f.relativePath, len(f.content))
}

// Project is the virtual file tree of one generation.
type Project struct {
	name  string
	files []File
}

// NewProject validates the project: non-blank name, at least one file, unique paths.
func NewProject(name string, files []File) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBlankProjectName
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f.relativePath == "" {
			return nil, ErrBlankFilePath
		}
		if _, dup := seen[f.relativePath]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePath, f.relativePath)
		}
		seen[f.relativePath] = struct{}{}
	}
	return &Project{name: name, files: append([]File(nil), files...)}, nil
}

func (p *Project) Name() string { return p.name }

// Files returns a copy of the files in generation order.
func (p *Project) Files() []File  { return append([]File(nil), p.files...) }
func (p *Project) FileCount() int { return len(p.files) }

func (p *Project) File(relativePath string) (File, bool) {
	for _, f := range p.files {
		if f.relativePath == relativePath {
			return f, true
		}
	}
	return File{}, false
}

func (p *Project) String() string {
	return fmt.Sprintf("Project{name=%q files=%d}", p.name, len(p.files))
}
