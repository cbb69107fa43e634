package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Harshitk-cp/expertd/internal/domain"
)

const (
	kdbPrefix = "kdb"
	kdbExt    = ".json"
)

// FileKnowledgeBaseStore serves the kdb*.json files of one directory.
// "kdb-car.json" is named "car"; files without the dash ("kdb.json",
// "kdb_medical.json") keep their full stem.
type FileKnowledgeBaseStore struct {
	dir string
}

func NewFileKnowledgeBaseStore(dir string) *FileKnowledgeBaseStore {
	return &FileKnowledgeBaseStore{dir: dir}
}

func (s *FileKnowledgeBaseStore) Dir() string {
	return s.dir
}

// nameOf maps a file name to a knowledge base name; ok is false for files
// that are not knowledge bases.
func nameOf(file string) (string, bool) {
	if !strings.HasPrefix(file, kdbPrefix) || !strings.HasSuffix(file, kdbExt) {
		return "", false
	}
	stem := strings.TrimSuffix(file, kdbExt)
	if name, cut := strings.CutPrefix(stem, kdbPrefix+"-"); cut && name != "" {
		return name, true
	}
	return stem, true
}

// fileOf is the inverse of nameOf. Names that already start with "kdb-"
// get a second prefix, or nameOf would strip it.
func fileOf(name string) string {
	if strings.HasPrefix(name, kdbPrefix) && !strings.HasPrefix(name, kdbPrefix+"-") {
		return name + kdbExt
	}
	return kdbPrefix + "-" + name + kdbExt
}

func (s *FileKnowledgeBaseStore) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid knowledge base name %q", name)
	}
	return filepath.Join(s.dir, fileOf(name)), nil
}

func (s *FileKnowledgeBaseStore) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	p, err := s.path(kb.Name)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(struct {
		Description string `json:"description,omitempty"`
		document
	}{kb.Description, document{Hypotheses: kb.Hypotheses, Evidences: kb.Evidences}}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode knowledge base %q: %w", kb.Name, err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if info, err := os.Stat(p); err == nil {
		kb.UpdatedAt = info.ModTime().UTC()
	}
	return nil
}

func (s *FileKnowledgeBaseStore) GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.load(name, p)
}

func (s *FileKnowledgeBaseStore) load(name, p string) (*domain.KnowledgeBase, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	kb := &domain.KnowledgeBase{}
	if err := json.Unmarshal(b, kb); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(p), err)
	}
	kb.Name = name
	if info, err := os.Stat(p); err == nil {
		kb.UpdatedAt = info.ModTime().UTC()
	}
	return kb, nil
}

func (s *FileKnowledgeBaseStore) List(ctx context.Context) ([]domain.KnowledgeBaseSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var summaries []domain.KnowledgeBaseSummary
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := nameOf(entry.Name())
		if !ok {
			continue
		}
		kb, err := s.load(name, filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, kb.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func (s *FileKnowledgeBaseStore) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return ErrNotFound
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *FileKnowledgeBaseStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}
