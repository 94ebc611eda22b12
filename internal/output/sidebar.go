package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jmylchreest/wiki2docs/pkg/wiki"
)

// MainPageTitle is the wiki's landing page, pinned to the top of the sidebar.
const MainPageTitle = "Main Page"

// uncategorizedLabel groups documents without a category.
const uncategorizedLabel = "General"

// SidebarItem is one doc entry.
type SidebarItem struct {
	ID    string
	Label string
}

// SidebarCategory is one collapsible group.
type SidebarCategory struct {
	Label string
	Items []SidebarItem
}

// Sidebar is the mainSidebar of a Docusaurus sidebars.js.
type Sidebar struct {
	Main       *SidebarItem
	Categories []SidebarCategory
}

// BuildSidebar groups docs by category. Known categories come first in the
// given order, then categories only documents carry in order of first use,
// then documents without a category. Empty groups are left out.
func BuildSidebar(categories []wiki.Category, docs []*wiki.Document) Sidebar {
	var sidebar Sidebar
	groups := make(map[string][]SidebarItem)
	var order []string

	for _, doc := range docs {
		item := SidebarItem{ID: doc.Dir() + "/index", Label: doc.Heading}
		if sidebar.Main == nil && sameTitle(doc.Title, MainPageTitle) {
			sidebar.Main = &item
			continue
		}
		text := doc.CategoryText()
		if _, ok := groups[text]; !ok {
			order = append(order, text)
		}
		groups[text] = append(groups[text], item)
	}

	emitted := make(map[string]bool)
	emit := func(text, label string) {
		if emitted[text] || len(groups[text]) == 0 {
			return
		}
		emitted[text] = true
		sidebar.Categories = append(sidebar.Categories, SidebarCategory{Label: label, Items: groups[text]})
	}

	for _, c := range categories {
		if c.Text != "" {
			emit(c.Text, c.Text)
		}
	}
	for _, text := range order {
		if text != "" {
			emit(text, text)
		}
	}
	emit("", uncategorizedLabel)
	return sidebar
}

func sameTitle(a, b string) bool {
	return strings.ReplaceAll(a, "_", " ") == strings.ReplaceAll(b, "_", " ")
}

var sidebarTemplate = template.Must(template.New("sidebars.js").Parse(`// @ts-check

/** @type {import('@docusaurus/plugin-content-docs').SidebarsConfig} */
const sidebars = {
  mainSidebar: [
{{- with .Main}}
    {
      type: 'doc',
      id: '{{js .ID}}',
      label: '{{js .Label}}',
    },
{{- end}}
{{- range .Categories}}
    {
      type: 'category',
      label: '{{js .Label}}',
      items: [
{{- range .Items}}
        {
          type: 'doc',
          id: '{{js .ID}}',
          label: '{{js .Label}}',
        },
{{- end}}
      ],
    },
{{- end}}
  ],
};

export default sidebars;
`))

// Render writes the sidebars.js source.
func (s Sidebar) Render(w io.Writer) error {
	return sidebarTemplate.Execute(w, s)
}

// WriteSidebarFile renders s to path, creating parent directories.
func WriteSidebarFile(path string, s Sidebar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create sidebar directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sidebar: %w", err)
	}
	if err := s.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("render sidebar: %w", err)
	}
	return f.Close()
}
