package config

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/composer.yaml
var defaultFiles embed.FS

// ComposerSettings holds the budgets used by the context composition engine
type ComposerSettings struct {
	Memory       MemorySettings       `yaml:"memory"`
	BlockContext BlockContextSettings `yaml:"block_context"`
}

// MemorySettings configures memory packing
type MemorySettings struct {
	MaxChars       int  `yaml:"max_chars"`
	HeaderOverhead int  `yaml:"header_overhead"`
	ItemOverhead   int  `yaml:"item_overhead"`
	IncludeScope   bool `yaml:"include_scope"`
}

// BlockContextSettings configures per-edge transforms
type BlockContextSettings struct {
	SummaryLength int    `yaml:"summary_length"`
	Ellipsis      string `yaml:"ellipsis"`
	SectionTitle  string `yaml:"section_title"`
}

// DefaultComposerSettings returns the embedded defaults.
// Panics only if the embedded file is malformed, which is a build error.
func DefaultComposerSettings() *ComposerSettings {
	s, err := parseComposerSettings(mustReadDefault("defaults/composer.yaml"), nil)
	if err != nil {
		panic(fmt.Sprintf("embedded composer settings: %v", err))
	}
	return s
}

// LoadComposerSettings returns the defaults overlaid with the YAML file at
// path. An empty path returns the defaults.
func LoadComposerSettings(path string) (*ComposerSettings, error) {
	base := DefaultComposerSettings()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read composer config: %w", err)
	}

	return parseComposerSettings(data, base)
}

func parseComposerSettings(data []byte, base *ComposerSettings) (*ComposerSettings, error) {
	settings := &ComposerSettings{}
	if base != nil {
		copied := *base
		settings = &copied
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse composer config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate rejects budgets the packer cannot work with
func (s *ComposerSettings) Validate() error {
	if s.Memory.MaxChars <= 0 {
		return fmt.Errorf("memory.max_chars must be positive")
	}
	if s.Memory.HeaderOverhead < 0 || s.Memory.ItemOverhead < 0 {
		return fmt.Errorf("memory overheads cannot be negative")
	}
	if s.BlockContext.SummaryLength <= 0 {
		return fmt.Errorf("block_context.summary_length must be positive")
	}
	if !strings.Contains(s.BlockContext.SectionTitle, "%s") {
		return fmt.Errorf("block_context.section_title must contain %%s")
	}
	return nil
}

func mustReadDefault(name string) []byte {
	data, err := defaultFiles.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read embedded %s: %v", name, err))
	}
	return data
}
