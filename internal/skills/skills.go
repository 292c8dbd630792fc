// Package skills defines the tools the model may call and the registry that
// turns them into wire-level tool declarations.
package skills

import (
	"context"
	"fmt"
	"sort"

	"github.com/tmc/langchaingo/llms"
)

// Skill is one callable tool.
type Skill interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema of the arguments object.
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

type Manager struct {
	skills map[string]Skill
}

func NewManager() *Manager {
	return &Manager{skills: make(map[string]Skill)}
}

func (m *Manager) Register(s Skill) {
	m.skills[s.Name()] = s
}

func (m *Manager) Get(name string) (Skill, bool) {
	s, ok := m.skills[name]
	return s, ok
}

func (m *Manager) List() []Skill {
	list := make([]Skill, 0, len(m.skills))
	for _, s := range m.skills {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// Declarations renders every registered skill as a function-calling tool.
func (m *Manager) Declarations() []llms.Tool {
	list := m.List()
	out := make([]llms.Tool, 0, len(list))
	for _, s := range list {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name(),
				Description: s.Description(),
				Parameters:  s.Parameters(),
			},
		})
	}
	return out
}

// Execute runs the named skill. Failures come back as the tool result text
// so the model can see what went wrong and react; only an unknown skill is
// reported the same way.
func (m *Manager) Execute(ctx context.Context, name string, args map[string]any) string {
	s, ok := m.Get(name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	out, err := s.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

// funcSkill lets builtins be declared as plain structs + closures.
type funcSkill struct {
	name   string
	desc   string
	params map[string]any
	run    func(ctx context.Context, args map[string]any) (string, error)
}

func (f *funcSkill) Name() string               { return f.name }
func (f *funcSkill) Description() string        { return f.desc }
func (f *funcSkill) Parameters() map[string]any { return f.params }
func (f *funcSkill) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f.run(ctx, args)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
