package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	errs "imgfetch/pkg/errors"
	"imgfetch/pkg/logger"
)

// Manifest records every distinct image fetched into an output directory.
// It is not safe for concurrent use.
type Manifest struct {
	// Hashes maps a hex SHA-256 digest to the filename holding those bytes
	Hashes map[string]string `json:"hashes"`
	// Files lists stored filenames in fetch order
	Files []string `json:"files"`
}

// New returns an empty manifest
func New() *Manifest {
	return &Manifest{
		Hashes: make(map[string]string),
		Files:  make([]string, 0),
	}
}

// Contains returns the filename recorded for hash
func (m *Manifest) Contains(hash string) (string, bool) {
	name, ok := m.Hashes[hash]
	return name, ok
}

// Record adds a newly stored file. A hash that is already present is refused
// so the files list never gets a second entry for the same content.
func (m *Manifest) Record(hash, filename string) error {
	if existing, ok := m.Hashes[hash]; ok {
		return errs.New(errs.ErrorTypeManifest, fmt.Sprintf("hash %s already recorded as %s", hash, existing), nil)
	}
	m.Hashes[hash] = filename
	m.Files = append(m.Files, filename)
	return nil
}

// Len returns the number of distinct images recorded
func (m *Manifest) Len() int {
	return len(m.Hashes)
}

// Verify checks that every hashed filename also appears in Files
func (m *Manifest) Verify() error {
	listed := make(map[string]struct{}, len(m.Files))
	for _, f := range m.Files {
		listed[f] = struct{}{}
	}

	var missing []string
	for _, name := range m.Hashes {
		if _, ok := listed[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	return errs.New(errs.ErrorTypeManifest,
		fmt.Sprintf("%d hashed file(s) missing from files list: %s", len(missing), strings.Join(missing, ", ")), nil)
}

// normalize replaces null collections from a hand-edited file with empty ones
func (m *Manifest) normalize() {
	if m.Hashes == nil {
		m.Hashes = make(map[string]string)
	}
	if m.Files == nil {
		m.Files = make([]string, 0)
	}
}

// Store reads and writes a manifest file
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a store for the manifest at path
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{path: path, logger: log}
}

// Path returns the manifest location
func (s *Store) Path() string {
	return s.path
}

// Load reads the manifest. A missing or unreadable file yields an empty
// manifest; corruption is logged, never returned.
func (s *Store) Load() *Manifest {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WarnWithFields("Manifest unreadable, starting empty", map[string]interface{}{
				"path": s.path,
			})
		}
		return New()
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.WithError(err).WarnWithFields("Manifest corrupt, starting empty", map[string]interface{}{
			"path": s.path,
		})
		return New()
	}
	m.normalize()

	s.logger.DebugWithFields("Manifest loaded", map[string]interface{}{
		"path":   s.path,
		"hashes": len(m.Hashes),
		"files":  len(m.Files),
	})
	return &m
}

// Save writes the manifest atomically: temp file, fsync, rename.
func (s *Store) Save(m *Manifest) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.New(errs.ErrorTypeManifest, "failed to create manifest directory", err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errs.New(errs.ErrorTypeManifest, "failed to create temporary manifest file", err)
	}
	tempPath := file.Name()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(m); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.New(errs.ErrorTypeManifest, "failed to encode manifest", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return errs.New(errs.ErrorTypeManifest, "failed to sync manifest file", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.New(errs.ErrorTypeManifest, "failed to close manifest file", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return errs.New(errs.ErrorTypeManifest, "failed to replace manifest", err)
	}

	s.logger.DebugWithFields("Manifest saved", map[string]interface{}{
		"path":   s.path,
		"hashes": len(m.Hashes),
	})
	return nil
}

// Missing returns recorded filenames that no longer exist in dir
func (m *Manifest) Missing(dir string) []string {
	var missing []string
	for _, name := range m.Files {
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			missing = append(missing, name)
		}
	}
	return missing
}
