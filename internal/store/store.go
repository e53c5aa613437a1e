package store

// Store defines the interface for persisting spliced kernel sources.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if an artifact doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveArtifact atomically writes the artifact's source and manifest and
	// returns the artifact ID. A fresh ID is assigned if artifact.ID is empty.
	SaveArtifact(artifact *Artifact) (string, error)

	// LoadArtifact retrieves an artifact, source included.
	// Returns ErrNotFound if no artifact exists for this ID.
	LoadArtifact(id string) (*Artifact, error)

	// ListArtifacts returns metadata for all stored artifacts, newest first.
	// The returned slice may be empty.
	ListArtifacts() ([]ArtifactInfo, error)

	// DeleteArtifact removes the artifact directory with all its files.
	// Returns ErrNotFound if no artifact exists for this ID.
	DeleteArtifact(id string) error
}

// ErrNotFound is returned when a requested artifact does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing artifact.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "artifact not found: " + e.ID
	}
	return "artifact not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
