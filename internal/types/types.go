package types

// File is one generated source file. Path is forward-slash delimited and unique within a Project.
type File struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"` // e.g., "html", "css", "javascript", "json"
}

// Project is the structured result of a successful generation run.
type Project struct {
	ProjectName string   `json:"projectName"`
	Description string   `json:"description"`
	Files       []File   `json:"files"`
	Steps       []string `json:"steps"`
}

// FindFile returns the file stored at path.
func (p *Project) FindFile(path string) (File, bool) {
	if p == nil {
		return File{}, false
	}
	for _, f := range p.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// WithFileContent returns a copy of the project whose file at path carries content.
// Every other entry is carried over unchanged. The second result is false when no file matches.
func (p *Project) WithFileContent(path, content string) (*Project, bool) {
	if p == nil {
		return nil, false
	}
	found := false
	files := make([]File, len(p.Files))
	for i, f := range p.Files {
		if f.Path == path {
			f.Content = content
			found = true
		}
		files[i] = f
	}
	if !found {
		return p, false
	}
	next := *p
	next.Files = files
	return &next, true
}

// Message is a single role-tagged block sent to a model provider.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}
