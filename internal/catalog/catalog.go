package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"toolscout/internal/core"
)

// Catalog persists the tool collection as a JSON array on disk. The pipeline
// only touches it through Load and Save; identity assignment happens in
// Merge, the single point where pipeline entities become permanent entries.
type Catalog struct {
	path string
}

// New creates a catalog backed by the JSON file at path.
func New(path string) *Catalog {
	return &Catalog{path: path}
}

// Path returns the backing file path.
func (c *Catalog) Path() string {
	return c.path
}

// Load reads all stored tools. A missing file is an empty catalog, not an
// error.
func (c *Catalog) Load() ([]core.StoredTool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read catalog %s: %w", c.path, err)
	}

	var tools []core.StoredTool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", c.path, err)
	}

	return tools, nil
}

// Save writes the full tool list, replacing the previous contents. The write
// goes through a temp file and rename so a crash cannot leave a torn file.
func (c *Catalog) Save(tools []core.StoredTool) error {
	if tools == nil {
		tools = []core.StoredTool{}
	}

	data, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp catalog file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close catalog file: %w", err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace catalog: %w", err)
	}

	return nil
}

// Merge folds incoming tools into the existing list. Tools whose normalized
// title already exists are dropped, not updated. Survivors get sequential
// identifiers continuing from the current maximum, so new IDs are always
// strictly greater than any prior ID.
func Merge(existing []core.StoredTool, incoming []core.StoredTool) (merged []core.StoredTool, added int) {
	seen := make(map[string]struct{}, len(existing))
	maxID := 0
	for _, tool := range existing {
		seen[normalizeTitle(tool.Title)] = struct{}{}
		if tool.ID > maxID {
			maxID = tool.ID
		}
	}

	merged = existing
	for _, tool := range incoming {
		key := normalizeTitle(tool.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		maxID++
		tool.ID = maxID
		merged = append(merged, tool)
		added++
	}

	return merged, added
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
