package patterns

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack adds patterns to the built-in library. Packs can never remove or
// replace a built-in pattern.
type Pack struct {
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description"`
	PackVersion     string          `yaml:"version"`
	Author          string          `yaml:"author"`
	SQLInjection    []PatternSpec   `yaml:"sql_injection"`
	PromptInjection []PatternSpec   `yaml:"prompt_injection"`
	OffTopic        []PatternSpec   `yaml:"off_topic"`
	SensitiveFields []string        `yaml:"sensitive_fields"`
	Ambiguity       []AmbiguityRule `yaml:"ambiguity"`
}

// PatternCount is the number of entries the pack contributes.
func (p *Pack) PatternCount() int {
	return len(p.SQLInjection) + len(p.PromptInjection) + len(p.OffTopic) +
		len(p.SensitiveFields) + len(p.Ambiguity)
}

// PackInfo is a summary of a pack for listing.
type PackInfo struct {
	Name         string
	Description  string
	Version      string
	Author       string
	Enabled      bool
	Path         string
	PatternCount int
	Err          error
}

// LoadPacks reads every .yaml/.yml file in dir. Files whose name starts with
// an underscore are listed but disabled. A pack that fails to parse is
// listed with Err set and skipped. A missing directory is not an error.
func LoadPacks(dir string) ([]*Pack, []PackInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var (
		packs []*Pack
		infos []PackInfo
	)
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		baseName := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		enabled := !strings.HasPrefix(baseName, "_")

		pack, err := loadPack(path)
		if err != nil {
			infos = append(infos, PackInfo{Name: baseName, Enabled: enabled, Path: path, Err: err})
			continue
		}
		if pack.Name == "" {
			pack.Name = baseName
		}

		infos = append(infos, PackInfo{
			Name:         pack.Name,
			Description:  pack.Description,
			Version:      pack.PackVersion,
			Author:       pack.Author,
			Enabled:      enabled,
			Path:         path,
			PatternCount: pack.PatternCount(),
		})
		if enabled {
			packs = append(packs, pack)
		}
	}
	return packs, infos, nil
}

// BuildFromDir loads the packs in dir and builds a library from them.
func BuildFromDir(dir string) (*Library, []PackInfo, error) {
	packs, infos, err := LoadPacks(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load packs: %w", err)
	}
	lib, err := Build(packs...)
	if err != nil {
		return nil, infos, err
	}
	return lib, infos, nil
}

func loadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse pack %s: %w", path, err)
	}
	return &pack, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
