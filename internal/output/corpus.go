package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmylchreest/wiki2docs/pkg/sanitize"
	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// DocumentFile is the file name of every document inside its directory.
const DocumentFile = "index.md"

// CategoryFile is the Docusaurus category metadata file.
const CategoryFile = "_category_.json"

// Corpus writes documents, assets and category metadata below a root
// directory. Documents are overwritten on every write; assets are written
// only when absent.
type Corpus struct {
	root string
}

// NewCorpus creates root if needed.
func NewCorpus(root string) (*Corpus, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Corpus{root: root}, nil
}

// Root returns the corpus directory.
func (c *Corpus) Root() string {
	return c.root
}

// Dir returns the directory of doc.
func (c *Corpus) Dir(doc *wiki.Document) string {
	return filepath.Join(c.root, filepath.FromSlash(doc.Dir()))
}

// DocumentPath returns the Markdown file of doc.
func (c *Corpus) DocumentPath(doc *wiki.Document) string {
	return filepath.Join(c.Dir(doc), DocumentFile)
}

// WriteDocument writes the rendered Markdown of doc and returns its path.
func (c *Corpus) WriteDocument(doc *wiki.Document, markdown string) (string, error) {
	dir := c.Dir(doc)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create document directory: %w", err)
	}
	path := filepath.Join(dir, DocumentFile)
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write document %q: %w", doc.Title, err)
	}
	return path, nil
}

// HasAsset reports whether the asset already exists next to doc.
func (c *Corpus) HasAsset(doc *wiki.Document, fileName string) bool {
	_, err := os.Stat(filepath.Join(c.Dir(doc), fileName))
	return err == nil
}

// WriteAsset stores data next to doc unless the file exists. It reports
// whether the file was written.
func (c *Corpus) WriteAsset(doc *wiki.Document, fileName string, data []byte) (bool, error) {
	if fileName == "" || fileName != filepath.Base(fileName) {
		return false, fmt.Errorf("%w: asset %q", wiki.ErrNoUsableName, fileName)
	}
	dir := c.Dir(doc)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create document directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, fileName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create asset %q: %w", fileName, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write asset %q: %w", fileName, err)
	}
	return true, f.Close()
}

type categoryMeta struct {
	Label    string `json:"label"`
	Position int    `json:"position"`
}

// WriteCategory writes the _category_.json of a category directory.
func (c *Corpus) WriteCategory(category wiki.Category, position int) (string, error) {
	name := sanitize.Path(category.Text)
	if name == "" {
		return "", fmt.Errorf("%w: category %q", wiki.ErrNoUsableName, category.Text)
	}
	dir := filepath.Join(c.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create category directory: %w", err)
	}

	data, err := json.MarshalIndent(categoryMeta{Label: category.Text, Position: position}, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, CategoryFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write category %q: %w", category.Text, err)
	}
	return path, nil
}
