package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Veraticus/txmatch/internal/model"
	"github.com/Veraticus/txmatch/internal/service"
)

var _ service.Store = (*FileStore)(nil)

// ruleRecord is the on-disk shape of a rule.
type ruleRecord struct {
	Name          string     `json:"name,omitempty" yaml:"name,omitempty"`
	Pattern       string     `json:"pattern" yaml:"pattern"`
	AccountNumber identifier `json:"account_number" yaml:"account_number"`
	Priority      int        `json:"priority" yaml:"priority"`
	Confidence    float64    `json:"confidence" yaml:"confidence"`
	IsRegex       bool       `json:"is_regex,omitempty" yaml:"is_regex,omitempty"`
}

type rulesDocument struct {
	Rules []ruleRecord `json:"rules" yaml:"rules"`
}

// FileStore keeps rules and mappings in JSON or YAML files. Missing files read
// as empty; saves replace the whole file.
type FileStore struct {
	logger       *slog.Logger
	rulesPath    string
	mappingsPath string
	mu           sync.Mutex
}

// NewFileStore creates a store over the given files. The format of each file
// is taken from its extension.
func NewFileStore(rulesPath, mappingsPath string, logger *slog.Logger) (*FileStore, error) {
	if err := validateString(rulesPath, "rulesPath"); err != nil {
		return nil, err
	}
	if err := validateString(mappingsPath, "mappingsPath"); err != nil {
		return nil, err
	}
	if _, err := FormatFromPath(rulesPath); err != nil {
		return nil, err
	}
	if _, err := FormatFromPath(mappingsPath); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		rulesPath:    rulesPath,
		mappingsPath: mappingsPath,
		logger:       logger,
	}, nil
}

// LoadRules reads the rule list. Both a bare list and a document with a rules
// key are accepted. Rules are returned as written; validation happens when
// they are loaded into a matcher.
func (f *FileStore) LoadRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadRules()
}

func (f *FileStore) loadRules() ([]model.Rule, error) {
	format, _ := FormatFromPath(f.rulesPath)
	data, err := readDocument(f.rulesPath)
	if err != nil {
		return nil, err
	}
	if data == nil {
		f.logger.Warn("rules file not found or empty, no rules loaded", "path", f.rulesPath)
		return []model.Rule{}, nil
	}

	var records []ruleRecord
	if err := decode(data, format, &records); err != nil {
		var doc rulesDocument
		if docErr := decode(data, format, &doc); docErr != nil {
			return nil, fmt.Errorf("failed to decode rules %s: %w", f.rulesPath, err)
		}
		records = doc.Rules
	}

	rules := make([]model.Rule, 0, len(records))
	for _, rec := range records {
		rules = append(rules, model.Rule{
			Name:          rec.Name,
			Pattern:       rec.Pattern,
			AccountNumber: string(rec.AccountNumber),
			Priority:      rec.Priority,
			Confidence:    rec.Confidence,
			IsRegex:       rec.IsRegex,
		})
	}

	f.logger.Debug("loaded rules", "path", f.rulesPath, "count", len(rules))
	return rules, nil
}

// SaveRules replaces the rules file.
func (f *FileStore) SaveRules(ctx context.Context, rules []model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rules == nil {
		rules = []model.Rule{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	format, _ := FormatFromPath(f.rulesPath)
	data, err := encode(format, rules)
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	if err := writeDocument(f.rulesPath, data); err != nil {
		return err
	}
	f.logger.Info("saved rules", "path", f.rulesPath, "count", len(rules))
	return nil
}

// LoadMappings reads the description to account mapping.
func (f *FileStore) LoadMappings(ctx context.Context) (model.Mapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadMappings()
}

func (f *FileStore) loadMappings() (model.Mapping, error) {
	format, _ := FormatFromPath(f.mappingsPath)
	data, err := readDocument(f.mappingsPath)
	if err != nil {
		return nil, err
	}
	if data == nil {
		f.logger.Warn("mappings file not found or empty, no mappings loaded", "path", f.mappingsPath)
		return model.Mapping{}, nil
	}

	var raw map[string]identifier
	if err := decode(data, format, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode mappings %s: %w", f.mappingsPath, err)
	}

	plain := make(map[string]string, len(raw))
	for desc, number := range raw {
		plain[desc] = string(number)
	}
	mapping := model.NewMapping(plain)

	f.logger.Debug("loaded mappings", "path", f.mappingsPath, "count", len(mapping))
	return mapping, nil
}

// SaveMappings replaces the mappings file.
func (f *FileStore) SaveMappings(ctx context.Context, mapping model.Mapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveMappings(mapping)
}

func (f *FileStore) saveMappings(mapping model.Mapping) error {
	if mapping == nil {
		mapping = model.Mapping{}
	}
	format, _ := FormatFromPath(f.mappingsPath)
	data, err := encode(format, map[string]string(mapping))
	if err != nil {
		return fmt.Errorf("failed to encode mappings: %w", err)
	}
	if err := writeDocument(f.mappingsPath, data); err != nil {
		return err
	}
	f.logger.Info("saved mappings", "path", f.mappingsPath, "count", len(mapping))
	return nil
}

// AddMapping upserts one mapping and rewrites the file.
func (f *FileStore) AddMapping(ctx context.Context, description, accountNumber string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(description, "description"); err != nil {
		return err
	}
	if err := validateString(accountNumber, "accountNumber"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	mapping, err := f.loadMappings()
	if err != nil {
		return err
	}
	mapping.Set(description, accountNumber)
	return f.saveMappings(mapping)
}

// Close is a no-op; files are not held open.
func (f *FileStore) Close() error {
	return nil
}

// sortedKeys returns the mapping keys in lexical order.
func sortedKeys(mapping model.Mapping) []string {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
