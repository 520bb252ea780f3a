package templates

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"tasknotify/internal/domain"
)

// Template is a parametrized message body with a fixed set of required
// variables. Placeholders are written as {variableName}.
type Template struct {
	ID                string          `json:"id" yaml:"id"`
	Name              string          `json:"name" yaml:"name"`
	Category          domain.Category `json:"category" yaml:"category"`
	Body              string          `json:"body" yaml:"body"`
	RequiredVariables []string        `json:"variables" yaml:"variables"`
}

func (t Template) clone() Template {
	t.RequiredVariables = slices.Clone(t.RequiredVariables)
	return t
}

// Requires reports whether name is one of the template's required variables.
func (t *Template) Requires(name string) bool {
	return slices.Contains(t.RequiredVariables, name)
}

// Catalog holds templates by unique id in registration order.
// It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]Template
	order []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byID: make(map[string]Template),
	}
}

// Register stores a template. It fails if the id is already taken.
func (c *Catalog) Register(t Template) error {
	if t.ID == "" {
		return &domain.TemplateError{Op: "Register", Err: domain.ErrUnknownTemplate}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[t.ID]; ok {
		return &domain.TemplateError{TemplateID: t.ID, Op: "Register", Err: domain.ErrDuplicateTemplateID}
	}

	c.byID[t.ID] = t.clone()
	c.order = append(c.order, t.ID)
	return nil
}

// RegisterAll stores every template or none of them. It fails if any id is
// empty, already taken, or repeated within ts.
func (c *Catalog) RegisterAll(ts []Template) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(ts))
	for _, t := range ts {
		if t.ID == "" {
			return &domain.TemplateError{Op: "Register", Err: domain.ErrUnknownTemplate}
		}
		if _, ok := c.byID[t.ID]; ok || seen[t.ID] {
			return &domain.TemplateError{TemplateID: t.ID, Op: "Register", Err: domain.ErrDuplicateTemplateID}
		}
		seen[t.ID] = true
	}

	for _, t := range ts {
		c.byID[t.ID] = t.clone()
		c.order = append(c.order, t.ID)
	}
	return nil
}

// Create registers a custom template under a generated id and returns it.
func (c *Catalog) Create(name string, category domain.Category, body string, variables []string) (Template, error) {
	if !category.Valid() || body == "" {
		return Template{}, &domain.TemplateError{Op: "Create", Err: domain.ErrUnknownTemplate}
	}

	t := Template{
		ID:                "template_" + uuid.NewString(),
		Name:              name,
		Category:          category,
		Body:              body,
		RequiredVariables: variables,
	}
	if len(t.RequiredVariables) == 0 {
		t.RequiredVariables = Placeholders(body)
	}
	if err := c.Register(t); err != nil {
		return Template{}, err
	}
	return t.clone(), nil
}

// Get returns the template registered under id.
func (c *Catalog) Get(id string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.byID[id]
	if !ok {
		return Template{}, &domain.TemplateError{TemplateID: id, Op: "Get", Err: domain.ErrTemplateNotFound}
	}
	return t.clone(), nil
}

// ListByCategory returns templates of the given category in registration order.
func (c *Catalog) ListByCategory(category domain.Category) []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Template
	for _, id := range c.order {
		if t := c.byID[id]; t.Category == category {
			out = append(out, t.clone())
		}
	}
	return out
}

// List returns every template in registration order.
func (c *Catalog) List() []Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].clone())
	}
	return out
}

// Len returns the number of registered templates.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
