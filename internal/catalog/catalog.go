package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Settings carries the export options applied to every clip.
type Settings struct {
	FPS      int    `json:"fps"`
	Format   string `json:"format"`
	WithSkin bool   `json:"with_skin"`
	Quality  string `json:"quality"`
}

// Category is an ordered group of canonical names.
type Category struct {
	Name  string
	Items []string
}

// Entry is one catalog item with its resolved rename.
type Entry struct {
	CanonicalName string
	Category      string
	Rename        string
}

// Catalog is the immutable, validated catalog for a run.
type Catalog struct {
	projectName string
	settings    Settings
	categories  []Category
	renames     map[string]string
	entries     []Entry
	byName      map[string]int
	byRename    map[string]int
}

// New validates the category lists and rename table and builds a Catalog.
// A canonical name may appear in only one category, and no two names may
// resolve to the same rename.
func New(projectName string, settings Settings, categories []Category, renames map[string]string) (*Catalog, error) {
	c := &Catalog{
		projectName: strings.TrimSpace(projectName),
		settings:    settings,
		renames:     make(map[string]string, len(renames)),
		byName:      make(map[string]int),
		byRename:    make(map[string]int),
	}
	for name, rename := range renames {
		rename = strings.TrimSpace(rename)
		if rename == "" {
			return nil, fmt.Errorf("animation_renames: empty rename for %q", name)
		}
		if strings.ContainsAny(rename, `/\`) {
			return nil, fmt.Errorf("animation_renames: rename %q for %q contains a path separator", rename, name)
		}
		c.renames[name] = rename
	}
	for _, category := range categories {
		key := strings.TrimSpace(category.Name)
		if key == "" {
			return nil, fmt.Errorf("category with empty name")
		}
		if strings.ContainsAny(key, `/\`) {
			return nil, fmt.Errorf("category %q contains a path separator", key)
		}
		items := make([]string, 0, len(category.Items))
		for _, name := range category.Items {
			if strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("category %q: empty canonical name", key)
			}
			if idx, ok := c.byName[name]; ok {
				return nil, fmt.Errorf("canonical name %q appears in both %q and %q", name, c.entries[idx].Category, key)
			}
			entry := Entry{CanonicalName: name, Category: key, Rename: c.Rename(name)}
			if idx, ok := c.byRename[entry.Rename]; ok {
				return nil, fmt.Errorf("canonical names %q and %q both resolve to %q", c.entries[idx].CanonicalName, name, entry.Rename)
			}
			c.byName[name] = len(c.entries)
			c.byRename[entry.Rename] = len(c.entries)
			c.entries = append(c.entries, entry)
			items = append(items, name)
		}
		c.categories = append(c.categories, Category{Name: key, Items: items})
	}
	return c, nil
}

// ProjectName returns the catalog's project label.
func (c *Catalog) ProjectName() string { return c.projectName }

// Settings returns the export settings.
func (c *Catalog) Settings() Settings { return c.settings }

// Rename resolves a canonical name to its file-system-safe identifier: the
// explicit mapping when present, the slug otherwise. Names outside every
// category still resolve.
func (c *Catalog) Rename(name string) string {
	if c != nil {
		if rename, ok := c.renames[name]; ok {
			return rename
		}
	}
	return Slug(name)
}

// Categories returns the categories in catalog order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, category := range c.categories {
		out[i] = Category{Name: category.Name, Items: append([]string(nil), category.Items...)}
	}
	return out
}

// Entries returns every item in catalog order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len reports the number of catalog items.
func (c *Catalog) Len() int { return len(c.entries) }

// Lookup finds the entry for a canonical name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx], true
}

// LookupRename finds the entry whose rename matches.
func (c *Catalog) LookupRename(rename string) (Entry, bool) {
	idx, ok := c.byRename[rename]
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx], true
}

var slugReplacer = strings.NewReplacer(
	" ", "_", "/", "_", "\\", "_", ":", "_",
	"*", "", "?", "", "\"", "", "<", "", ">", "", "|", "",
)

// Slug lowercases name and replaces every space with an underscore, so runs
// of spaces are kept. Accents are folded to their base letters, path
// separators become underscores and other file-system-unsafe characters are
// dropped.
func Slug(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	return slugReplacer.Replace(cases.Lower(language.Und).String(folded))
}
