// Package yamlstore persists identities, servers, and macros as YAML files,
// grounded on DALnet-rnexus's internal/config package: the same
// os.ReadFile-then-yaml.Unmarshal load and a symmetric yaml.Marshal-then-
// os.WriteFile save, for the static, hand-edited entities 
// assigns to this store.
package yamlstore

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/coldwire/irc/config"
	"github.com/coldwire/irc/macro"
)

// document is the on-disk shape of the YAML file this package reads and
// writes as a single unit -- identities, servers, and macros are small and
// rarely change concurrently with each other, so one file (and one mutex)
// is simpler than three.
type document struct {
	Identities []config.Identity `yaml:"identities"`
	Servers []config.Server `yaml:"servers"`
	Macros []macro.Macro `yaml:"macros"`
}

// Store implements config.IdentityStore, config.ServerStore, and
// config.MacroStore backed by a single YAML file.
type Store struct {
	path string
	mu sync.Mutex
}

// Open returns a Store for path after checking that path can be stat'ed; a
// missing file is accepted. Open does not read the file: every accessor
// loads it afresh, treating a missing file as an empty document, and the
// file is only created on the first write.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &Store{path: path}, nil
		}
		return nil, fmt.Errorf("yamlstore: stat %s: %w", path, err)
	}
	return &Store{path: path}, nil
}

func (s *Store) load() (document, error) {
	var doc document
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("yamlstore: read %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("yamlstore: parse %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("yamlstore: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("yamlstore: write %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Identities() ([]config.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	return doc.Identities, err
}

func (s *Store) SaveIdentity(id config.Identity) (config.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return id, err
	}
	if id.ID == 0 {
		id.ID = nextID(len(doc.Identities), doc.Identities, func(i config.Identity) int64 { return i.ID })
	}
	replaced := false
	for i, existing := range doc.Identities {
		if existing.ID == id.ID {
			doc.Identities[i] = id
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Identities = append(doc.Identities, id)
	}
	return id, s.save(doc)
}

func (s *Store) DeleteIdentity(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range doc.Identities {
		if existing.ID == id {
			doc.Identities = append(doc.Identities[:i], doc.Identities[i+1:]...)
			return s.save(doc)
		}
	}
	return nil
}

func (s *Store) Servers() ([]config.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	return doc.Servers, err
}

func (s *Store) SaveServer(srv config.Server) (config.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return srv, err
	}
	if srv.ID == 0 {
		srv.ID = nextID(len(doc.Servers), doc.Servers, func(v config.Server) int64 { return v.ID })
	}
	replaced := false
	for i, existing := range doc.Servers {
		if existing.ID == srv.ID {
			doc.Servers[i] = srv
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Servers = append(doc.Servers, srv)
	}
	return srv, s.save(doc)
}

func (s *Store) DeleteServer(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range doc.Servers {
		if existing.ID == id {
			doc.Servers = append(doc.Servers[:i], doc.Servers[i+1:]...)
			return s.save(doc)
		}
	}
	return nil
}

func (s *Store) Macros() ([]macro.Macro, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	return doc.Macros, err
}

func (s *Store) SaveMacro(m macro.Macro) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range doc.Macros {
		if existing.Name == m.Name {
			doc.Macros[i] = m
			return s.save(doc)
		}
	}
	doc.Macros = append(doc.Macros, m)
	return s.save(doc)
}

func (s *Store) DeleteMacro(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range doc.Macros {
		if existing.Name == name {
			doc.Macros = append(doc.Macros[:i], doc.Macros[i+1:]...)
			return s.save(doc)
		}
	}
	return nil
}

// nextID picks one past the current maximum id in rows, so freshly-added
// rows with a zero ID get an identifier unique among the rows currently in
// this file; an id freed by deleting the highest row can be handed out again.
func nextID[T any](n int, rows []T, id func(T) int64) int64 {
	var max int64
	for _, r := range rows {
		if v := id(r); v > max {
			max = v
		}
	}
	return max + 1
}
