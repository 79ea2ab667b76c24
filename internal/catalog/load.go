package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Noquela/sands-of-duat/internal/services"
)

const (
	keyProjectName = "project_name"
	keySettings    = "animation_settings"
	keyRenames     = "animation_renames"
)

// LoadError reports a catalog that cannot be used. It matches
// services.ErrConfigLoad under errors.Is.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load catalog: %v", e.Err)
	}
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{services.ErrConfigLoad, e.Err}
}

// Load reads and validates the catalog config at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	c, err := Parse(bytes.NewReader(data))
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
			return nil, loadErr
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return c, nil
}

// Parse decodes the catalog JSON. Keys other than project_name,
// animation_settings, and animation_renames whose values are string arrays are
// categories; their order in the document is preserved.
func Parse(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("read catalog: %w", err)}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &LoadError{Err: errors.New("catalog must be a JSON object")}
	}

	var (
		projectName string
		settings    *Settings
		renames     map[string]string
		categories  []Category
		seen        = make(map[string]struct{})
	)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &LoadError{Err: fmt.Errorf("read key: %w", err)}
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &LoadError{Err: fmt.Errorf("decode %q: %w", key, err)}
		}
		if _, dup := seen[key]; dup {
			return nil, &LoadError{Err: fmt.Errorf("duplicate key %q", key)}
		}
		seen[key] = struct{}{}

		switch key {
		case keyProjectName:
			if err := json.Unmarshal(raw, &projectName); err != nil {
				return nil, &LoadError{Err: fmt.Errorf("%s: %w", keyProjectName, err)}
			}
		case keySettings:
			var s Settings
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, &LoadError{Err: fmt.Errorf("%s: %w", keySettings, err)}
			}
			settings = &s
		case keyRenames:
			if err := json.Unmarshal(raw, &renames); err != nil {
				return nil, &LoadError{Err: fmt.Errorf("%s: %w", keyRenames, err)}
			}
		default:
			var items []string
			if err := json.Unmarshal(raw, &items); err != nil {
				// Not a name list; metadata keys are tolerated.
				continue
			}
			categories = append(categories, Category{Name: key, Items: items})
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("read catalog end: %w", err)}
	}

	var missing []string
	if strings.TrimSpace(projectName) == "" {
		missing = append(missing, keyProjectName)
	}
	if settings == nil {
		missing = append(missing, keySettings)
	}
	if len(categories) == 0 {
		missing = append(missing, "<category>")
	}
	if len(missing) > 0 {
		return nil, &LoadError{Err: fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))}
	}

	c, err := New(projectName, *settings, categories, renames)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	if c.Len() == 0 {
		return nil, &LoadError{Err: errors.New("catalog lists no animations")}
	}
	return c, nil
}
