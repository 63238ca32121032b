// Package seed reads and writes the YAML catalog document that populates
// the category ontology, its apps, and their deployed components.
package seed

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a full catalog: the category forest in display order, the
// apps filed under it, and the components those apps run.
type Document struct {
	Categories []Category  `yaml:"categories"`
	Apps       []App       `yaml:"apps,omitempty"`
	Components []Component `yaml:"components,omitempty"`
}

// Category is a node of the ontology. Root order in the document is the
// order clients display.
type Category struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	Categories []Category `yaml:"categories,omitempty"`
}

// App is an app filed under one or more categories by id.
type App struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Integrator  string   `yaml:"integrator,omitempty"`
	Favorite    bool     `yaml:"favorite,omitempty"`
	Categories  []string `yaml:"categories,omitempty"`
	Components  []string `yaml:"components,omitempty"`
}

// Component is a deployed tool.
type Component struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Version     string `yaml:"version,omitempty"`
	Location    string `yaml:"location,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Marshal encodes doc as YAML.
func Marshal(doc *Document) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("seed: encode: %w", err)
	}
	return out, nil
}

// Validate checks id uniqueness and that every app reference resolves.
func (d *Document) Validate() error {
	categories := make(map[string]struct{})
	pending := append([]Category(nil), d.Categories...)
	for len(pending) > 0 {
		c := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("seed: category %q has no id", c.Name)
		}
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("seed: category %q has no name", c.ID)
		}
		if _, dup := categories[c.ID]; dup {
			return fmt.Errorf("seed: duplicate category id %q", c.ID)
		}
		categories[c.ID] = struct{}{}
		pending = append(pending, c.Categories...)
	}

	components := make(map[string]struct{}, len(d.Components))
	for _, c := range d.Components {
		if c.ID == "" {
			return fmt.Errorf("seed: component %q has no id", c.Name)
		}
		if _, dup := components[c.ID]; dup {
			return fmt.Errorf("seed: duplicate component id %q", c.ID)
		}
		components[c.ID] = struct{}{}
	}

	apps := make(map[string]struct{}, len(d.Apps))
	for _, a := range d.Apps {
		if a.ID == "" {
			return fmt.Errorf("seed: app %q has no id", a.Name)
		}
		if _, dup := apps[a.ID]; dup {
			return fmt.Errorf("seed: duplicate app id %q", a.ID)
		}
		apps[a.ID] = struct{}{}
		for _, cid := range a.Categories {
			if _, ok := categories[cid]; !ok {
				return fmt.Errorf("seed: app %q references unknown category %q", a.ID, cid)
			}
		}
		for _, cid := range a.Components {
			if _, ok := components[cid]; !ok {
				return fmt.Errorf("seed: app %q references unknown component %q", a.ID, cid)
			}
		}
	}
	return nil
}
