// Package tools describes the backend tool surface so clients can filter
// which tools a turn may use. Tools execute server-side; the catalog only
// carries names, tags, and parameter schemas for display and filtering.
package tools

import (
	"sync"

	"github.com/invopop/jsonschema"
)

type Tool struct {
	Name        string
	Description string
	Tags        []string
	// Parameters is the JSON schema of the tool's arguments, reflected from
	// the argument struct the backend documents.
	Parameters *jsonschema.Schema
}

// New builds a tool description. parameters may be nil for tools without
// arguments; otherwise its type is reflected into a JSON schema.
func New(name, description string, parameters any, tags ...string) Tool {
	tool := Tool{Name: name, Description: description, Tags: tags}
	if parameters != nil {
		tool.Parameters = jsonschema.Reflect(parameters)
	}
	return tool
}

func (t Tool) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Catalog is a concurrency-safe collection of tool descriptions.
type Catalog struct {
	mu    sync.RWMutex
	tools []Tool
}

func NewCatalog(tools ...Tool) *Catalog {
	catalog := &Catalog{}
	catalog.Register(tools...)
	return catalog
}

// Register appends tools to the catalog, replacing any existing tool with
// the same name.
func (c *Catalog) Register(tools ...Tool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tool := range tools {
		if tool.Name == "" {
			continue
		}
		replaced := false
		for i := range c.tools {
			if c.tools[i].Name == tool.Name {
				c.tools[i] = tool
				replaced = true
				break
			}
		}
		if !replaced {
			c.tools = append(c.tools, tool)
		}
	}
}

func (c *Catalog) All() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tools := make([]Tool, len(c.tools))
	copy(tools, c.tools)
	return tools
}

func (c *Catalog) Lookup(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, tool := range c.tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tools))
	for _, tool := range c.tools {
		names = append(names, tool.Name)
	}
	return names
}

// Tags returns the distinct tags across the catalog, in first-seen order.
func (c *Catalog) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := map[string]bool{}
	tags := []string{}
	for _, tool := range c.tools {
		for _, tag := range tool.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// AllowedNames returns the names of tools carrying at least one of the
// enabled tags. With no tags given, every tool is allowed.
func (c *Catalog) AllowedNames(enabledTags ...string) []string {
	if len(enabledTags) == 0 {
		return c.Names()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	names := []string{}
	for _, tool := range c.tools {
		for _, tag := range enabledTags {
			if tool.HasTag(tag) {
				names = append(names, tool.Name)
				break
			}
		}
	}
	return names
}
