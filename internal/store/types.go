package store

import (
	"time"

	"github.com/cwbudde/clkernel/internal/kernel"
)

// IncludeRecord describes one inlined include of a saved artifact.
type IncludeRecord struct {
	Target string `json:"target"`
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Size   int    `json:"size"`
}

// Artifact is a spliced kernel source as handed to the device compiler,
// together with where its parts came from. The manifest (everything but
// Source) is stored as manifest.json, the source as source.cl.
type Artifact struct {
	ID         string          `json:"id"`
	Kernel     string          `json:"kernel"`
	Path       string          `json:"path"`
	SearchPath []string        `json:"searchPath"`
	Includes   []IncludeRecord `json:"includes,omitempty"`
	Size       int             `json:"size"`
	Timestamp  time.Time       `json:"timestamp"`

	Source []byte `json:"-"`
}

// ArtifactInfo is the metadata shown when listing artifacts.
type ArtifactInfo struct {
	ID        string    `json:"id"`
	Kernel    string    `json:"kernel"`
	Includes  int       `json:"includes"`
	Size      int       `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// NewArtifact captures a loaded source. The ID is assigned on save.
func NewArtifact(src *kernel.Source) *Artifact {
	a := &Artifact{
		Kernel:     src.Name,
		Path:       src.Path,
		SearchPath: src.SearchPath,
		Size:       src.Len(),
		Timestamp:  time.Now(),
		Source:     src.Bytes(),
	}
	for _, inc := range src.Includes {
		a.Includes = append(a.Includes, IncludeRecord{
			Target: inc.Target,
			Path:   inc.Path,
			Line:   inc.Line,
			Size:   inc.Size,
		})
	}
	return a
}

// ToInfo converts a full Artifact to ArtifactInfo (metadata only).
func (a *Artifact) ToInfo() ArtifactInfo {
	return ArtifactInfo{
		ID:        a.ID,
		Kernel:    a.Kernel,
		Includes:  len(a.Includes),
		Size:      a.Size,
		Timestamp: a.Timestamp,
	}
}

// Validate checks that the artifact can be stored.
func (a *Artifact) Validate() error {
	if a.Kernel == "" {
		return &ValidationError{Field: "Kernel", Reason: "cannot be empty"}
	}
	if a.Size != len(a.Source) {
		return &ValidationError{Field: "Size", Reason: "does not match source length"}
	}
	if a.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents an artifact validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
