package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// FSStore implements the Store interface using filesystem-based persistence.
// Artifacts are stored in a directory structure: <baseDir>/artifacts/<id>/
//
// Thread-safety: every file is written to a temp file and renamed into
// place, so concurrent callers never observe partial files.
type FSStore struct {
	baseDir string // Root directory for all artifact data (e.g., "./data")
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

func (fs *FSStore) artifactsDir() string {
	return filepath.Join(fs.baseDir, "artifacts")
}

// ArtifactDir returns the directory holding the files of one artifact.
func (fs *FSStore) ArtifactDir(id string) string {
	return filepath.Join(fs.artifactsDir(), id)
}

func (fs *FSStore) manifestPath(id string) string {
	return filepath.Join(fs.ArtifactDir(id), "manifest.json")
}

// SourcePath returns the path of the saved spliced source.
func (fs *FSStore) SourcePath(id string) string {
	return filepath.Join(fs.ArtifactDir(id), "source.cl")
}

// SaveArtifact atomically saves the source and manifest of an artifact.
func (fs *FSStore) SaveArtifact(artifact *Artifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("artifact cannot be nil")
	}
	if err := artifact.Validate(); err != nil {
		return "", err
	}
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}

	dir := fs.ArtifactDir(artifact.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize manifest: %w", err)
	}

	// source first: a manifest is only visible once its source is in place
	if err := writeAtomic(fs.SourcePath(artifact.ID), artifact.Source); err != nil {
		return "", err
	}
	if err := writeAtomic(fs.manifestPath(artifact.ID), data); err != nil {
		return "", err
	}

	slog.Debug("Artifact saved", "id", artifact.ID, "kernel", artifact.Kernel, "path", dir)
	return artifact.ID, nil
}

// writeAtomic writes data to a temp file next to path and renames it over path.
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadArtifact retrieves an artifact including its source.
func (fs *FSStore) LoadArtifact(id string) (*Artifact, error) {
	artifact, err := fs.loadManifest(id)
	if err != nil {
		return nil, err
	}

	source, err := os.ReadFile(fs.SourcePath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact source: %w", err)
	}
	artifact.Source = source

	slog.Debug("Artifact loaded", "id", id, "kernel", artifact.Kernel)
	return artifact, nil
}

func (fs *FSStore) loadManifest(id string) (*Artifact, error) {
	if id == "" {
		return nil, fmt.Errorf("artifact id cannot be empty")
	}

	data, err := os.ReadFile(fs.manifestPath(id))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	return &artifact, nil
}

// ListArtifacts returns metadata for all stored artifacts, newest first.
func (fs *FSStore) ListArtifacts() ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(fs.artifactsDir())
	if os.IsNotExist(err) {
		return []ArtifactInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read artifacts directory: %w", err)
	}

	infos := []ArtifactInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		artifact, err := fs.loadManifest(entry.Name())
		if err != nil {
			slog.Warn("Failed to load manifest for listing", "id", entry.Name(), "error", err)
			continue
		}
		infos = append(infos, artifact.ToInfo())
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})

	slog.Debug("Listed artifacts", "count", len(infos))
	return infos, nil
}

// DeleteArtifact removes the artifact directory and everything in it.
func (fs *FSStore) DeleteArtifact(id string) error {
	if id == "" {
		return fmt.Errorf("artifact id cannot be empty")
	}

	dir := fs.ArtifactDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat artifact directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove artifact directory: %w", err)
	}

	slog.Debug("Artifact deleted", "id", id, "path", dir)
	return nil
}
