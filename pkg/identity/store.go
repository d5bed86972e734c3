package identity

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

type profile struct {
	DisplayName string `json:"display_name"`
}

// Store persists the local display name. An empty name means the user has
// not registered yet.
type Store struct {
	path string
}

// NewStore returns a store backed by the JSON file at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted display name. A missing file yields "".
func (s *Store) Load() (string, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	var data profile
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return "", err
	}
	return data.DisplayName, nil
}

// Save writes the display name, creating the data directory if needed
func (s *Store) Save(name string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	file, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewEncoder(file).Encode(profile{DisplayName: name})
}

// Clear forgets the persisted name
func (s *Store) Clear() error {
	return s.Save("")
}

// NameLoader reads a persisted display name; "" means none
type NameLoader interface {
	Load() (string, error)
}

// LoadName returns the persisted name, or a generated device name when none
// is stored or it cannot be read. registered reports whether a name was
// stored.
func LoadName(l NameLoader) (name string, registered bool) {
	name, err := l.Load()
	if err != nil {
		log.Warnf("failed to load display name, using a default: %v", err)
	}
	if name == "" {
		return DefaultDeviceName(), false
	}
	return name, true
}

func DefaultPath(dataDir string) string {
	if dataDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "profile.json"
		}
		dataDir = filepath.Join(cwd, "data")
	}
	return filepath.Join(dataDir, "profile.json")
}
