package memory

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"multiblock/internal/config"
	"multiblock/internal/domain/models/memory"
)

// Packing priority: lower sorts first. Constraints and decisions win the
// budget before facts and notes; board-wide items before narrower ones.
var (
	typePriority = map[memory.ItemType]int{
		memory.TypeConstraint: 0,
		memory.TypeDecision:   1,
		memory.TypeFact:       2,
		memory.TypeNote:       3,
	}
	scopePriority = map[memory.Scope]int{
		memory.ScopeBoard: 0,
		memory.ScopeBlock: 1,
		memory.ScopeChat:  2,
	}
	// Display order is independent of packing order
	sectionTitles = []struct {
		itemType memory.ItemType
		title    string
	}{
		{memory.TypeFact, "Facts"},
		{memory.TypeDecision, "Decisions"},
		{memory.TypeConstraint, "Constraints"},
		{memory.TypeNote, "Notes"},
	}
)

const (
	memoryHeader    = "## Memory"
	maxKeywords     = 5
	minKeywordRunes = 4
)

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

// FilterMemoryItems keeps the items matching every non-empty option category.
func FilterMemoryItems(items []memory.Item, opts memory.FilterOptions) []memory.Item {
	keywords := make([]string, 0, len(opts.Keywords))
	for _, kw := range opts.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	filtered := make([]memory.Item, 0, len(items))
	for _, item := range items {
		if len(opts.Scopes) > 0 && !slices.Contains(opts.Scopes, item.Scope) {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, item.Type) {
			continue
		}
		if opts.SourceBlockID != nil && item.Scope != memory.ScopeBoard && !item.IsFromBlock(*opts.SourceBlockID) {
			continue
		}
		if len(keywords) > 0 && !matchesAnyKeyword(item, keywords) {
			continue
		}
		filtered = append(filtered, item)
	}

	return filtered
}

// SelectForBlock applies scope isolation: board-scoped items are visible to
// every block, block- and chat-scoped items only to their source block.
func SelectForBlock(items []memory.Item, blockID string) []memory.Item {
	selected := make([]memory.Item, 0, len(items))
	for _, item := range items {
		switch item.Scope {
		case memory.ScopeBoard:
			selected = append(selected, item)
		case memory.ScopeBlock, memory.ScopeChat:
			if item.IsFromBlock(blockID) {
				selected = append(selected, item)
			}
		}
	}
	return selected
}

// ExtractKeywords returns up to five of the most frequent words longer than
// three characters. Ties keep first-appearance order.
func ExtractKeywords(content string) []string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(content), "")

	counts := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) < minKeywordRunes {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	if order == nil {
		return []string{}
	}
	return order
}

// Builder packs memory items into a character budget and renders them.
type Builder struct {
	settings config.MemorySettings
}

// NewBuilder creates a Builder with the given budgets
func NewBuilder(settings config.MemorySettings) *Builder {
	return &Builder{settings: settings}
}

// DefaultBuilder uses the embedded composer defaults
func DefaultBuilder() *Builder {
	return NewBuilder(config.DefaultComposerSettings().Memory)
}

// Settings returns the budgets this builder packs with
func (b *Builder) Settings() config.MemorySettings {
	return b.settings
}

// ForBlock selects the items visible to blockID and builds their context.
func (b *Builder) ForBlock(items []memory.Item, blockID string, opts memory.BuildOptions) *memory.InjectedResult {
	return b.Build(SelectForBlock(items, blockID), opts)
}

// Build filters, prioritises and greedily packs items, then formats the
// included ones. Packing stops at the first item that does not fit; every
// lower-priority item after it is excluded.
func (b *Builder) Build(items []memory.Item, opts memory.BuildOptions) *memory.InjectedResult {
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = b.settings.MaxChars
	}

	candidates := FilterMemoryItems(items, opts.FilterOptions)
	sortByPriority(candidates)

	included := make([]memory.Item, 0, len(candidates))
	excluded := make([]memory.Item, 0)
	used := b.settings.HeaderOverhead
	exhausted := false

	for _, item := range candidates {
		cost := utf8.RuneCountInString(item.Content) + b.settings.ItemOverhead
		if !exhausted && used+cost <= maxChars {
			included = append(included, item)
			used += cost
			continue
		}
		exhausted = true
		excluded = append(excluded, item)
	}

	formatted := formatItems(included, opts.IncludeScope)

	return &memory.InjectedResult{
		FormattedContent: formatted,
		IncludedItems:    included,
		ExcludedItems:    excluded,
		CharCount:        utf8.RuneCountInString(formatted),
		WasTruncated:     len(excluded) > 0,
	}
}

// BuildMemoryContext runs Build with the default budgets.
func BuildMemoryContext(items []memory.Item, opts memory.BuildOptions) *memory.InjectedResult {
	return DefaultBuilder().Build(items, opts)
}

// GetMemoryForBlock runs ForBlock with the default budgets.
func GetMemoryForBlock(items []memory.Item, blockID string, opts memory.BuildOptions) *memory.InjectedResult {
	return DefaultBuilder().ForBlock(items, blockID, opts)
}

func sortByPriority(items []memory.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := typePriority[items[i].Type], typePriority[items[j].Type]
		if ti != tj {
			return ti < tj
		}
		return scopePriority[items[i].Scope] < scopePriority[items[j].Scope]
	})
}

func formatItems(items []memory.Item, includeScope bool) string {
	if len(items) == 0 {
		return ""
	}

	byType := make(map[memory.ItemType][]memory.Item)
	for _, item := range items {
		byType[item.Type] = append(byType[item.Type], item)
	}

	sections := []string{memoryHeader}
	for _, section := range sectionTitles {
		group := byType[section.itemType]
		if len(group) == 0 {
			continue
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "### %s", section.title)
		for _, item := range group {
			sb.WriteString("\n- ")
			sb.WriteString(item.Content)
			if includeScope {
				fmt.Fprintf(&sb, " [%s]", item.Scope)
			}
		}
		sections = append(sections, sb.String())
	}

	return strings.Join(sections, "\n\n")
}

func matchesAnyKeyword(item memory.Item, keywords []string) bool {
	content := strings.ToLower(item.Content)
	for _, kw := range keywords {
		for _, itemKw := range item.Keywords {
			if strings.EqualFold(itemKw, kw) {
				return true
			}
		}
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}
