// Package manifest implements the project-level manifest model and loader
// (C3): environments map, runbook declarations, inheritance resolution,
// and directory expansion.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GlobalEnvironment is the distinguished inheritance base.
const GlobalEnvironment = "global"

// FileNames are the two accepted manifest filenames, in the order
// FindFile checks them.
var FileNames = []string{"txtx.yml", "txtx.yaml"}

// FindFile walks startDir and its ancestors looking for txtx.yml or
// txtx.yaml, returning the first match. Used both by the LSP's
// per-document manifest discovery and the CLI's --manifest-file-path
// default.
func FindFile(startDir string) (string, bool) {
	dir := startDir
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// RunbookDecl declares one logical runbook: a name, description, and
// either a single file or a directory of `.tx` files.
type RunbookDecl struct {
	Name        string `yaml:"name" json:"name"`
	Location    string `yaml:"location" json:"location"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// resolvedPath is the absolute, on-disk path computed at load time —
	// it is never read from YAML.
	resolvedPath string
}

// Manifest is the parsed `txtx.yml`/`txtx.yaml` project descriptor.
type Manifest struct {
	Name         string                       `yaml:"name" json:"name"`
	ID           string                       `yaml:"id,omitempty" json:"id,omitempty"`
	Runbooks     []RunbookDecl                `yaml:"runbooks,omitempty" json:"runbooks,omitempty"`
	Environments map[string]map[string]string `yaml:"environments,omitempty" json:"environments,omitempty"`

	// Root is the absolute directory containing the manifest file. Set
	// after loading, like the teacher's Project.Root.
	Root string `yaml:"-" json:"-"`

	// Path is the absolute path to the manifest file itself.
	Path string `yaml:"-" json:"-"`

	// deprecatedInputs holds the global environment keys whose YAML entry
	// carries a leading "#deprecated" comment, per spec.md §4.6's
	// DeprecatedInput rule. Populated at load time; nil if none found.
	deprecatedInputs map[string]bool
}

// DeprecatedInputs returns the set of global-environment input keys marked
// deprecated via a leading "#deprecated" YAML comment. Satisfies
// validate.ManifestView.
func (m *Manifest) DeprecatedInputs() map[string]bool {
	if m.deprecatedInputs == nil {
		return map[string]bool{}
	}
	return m.deprecatedInputs
}

// LoadError wraps a manifest load failure with enough context for the
// "syntax-only mode" fallback described in spec.md §4.9.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load manifest %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// UnknownEnvironmentError is returned by EffectiveEnvironment when a named
// environment isn't declared in the manifest.
type UnknownEnvironmentError struct {
	Name string
}

func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown environment %q", e.Name)
}

// Load reads and decodes a manifest file at path, matching the teacher's
// decode idiom (pkg/schema/project.go). Unlike the teacher's runbook
// decoder, unknown top-level keys are tolerated here (never rejected) per
// spec.md §3 — callers that want them surfaced as warnings should use
// LoadWithWarnings instead.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	m, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	m.Root = filepath.Dir(abs)
	m.Path = abs
	m.deprecatedInputs = deprecatedGlobalKeys(data)

	if m.Name == "" {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("manifest missing required field: name")}
	}

	for i := range m.Runbooks {
		if err := m.resolveDecl(&m.Runbooks[i]); err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
	}
	return m, nil
}

// LoadWithWarnings behaves like Load but tolerates unknown top-level keys,
// returning them as warning strings instead of failing — matching spec.md
// §3 "Manifest... unknown top-level keys produce warnings, not errors."
func LoadWithWarnings(path string) (*Manifest, []string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: err}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, &LoadError{Path: path, Err: err}
	}

	warnings := unknownTopLevelKeys(data)

	m, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, warnings, &LoadError{Path: path, Err: err}
	}
	m.Root = filepath.Dir(abs)
	m.Path = abs
	m.deprecatedInputs = deprecatedGlobalKeys(data)

	if m.Name == "" {
		return nil, warnings, &LoadError{Path: path, Err: fmt.Errorf("manifest missing required field: name")}
	}

	for i := range m.Runbooks {
		if err := m.resolveDecl(&m.Runbooks[i]); err != nil {
			return nil, warnings, &LoadError{Path: path, Err: err}
		}
	}
	return m, warnings, nil
}

func decode(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	var m Manifest
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

var knownTopLevelKeys = map[string]bool{
	"name": true, "id": true, "runbooks": true, "environments": true,
}

func unknownTopLevelKeys(data []byte) []string {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil || len(raw.Content) == 0 {
		return nil
	}
	doc := raw.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	var unknown []string
	for i := 0; i < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		if !knownTopLevelKeys[key] {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

// deprecatedGlobalKeys walks environments.global looking for entries whose
// YAML comment mentions "deprecated" — spec.md §4.6: "manifest may
// annotate keys with a leading #deprecated comment."
func deprecatedGlobalKeys(data []byte) map[string]bool {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil || len(raw.Content) == 0 {
		return nil
	}
	doc := raw.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "environments" {
			continue
		}
		envs := doc.Content[i+1]
		if envs.Kind != yaml.MappingNode {
			return nil
		}
		for j := 0; j < len(envs.Content); j += 2 {
			if envs.Content[j].Value != GlobalEnvironment {
				continue
			}
			global := envs.Content[j+1]
			if global.Kind != yaml.MappingNode {
				return nil
			}
			found := map[string]bool{}
			for k := 0; k < len(global.Content); k += 2 {
				keyNode := global.Content[k]
				comment := keyNode.HeadComment + keyNode.LineComment
				if strings.Contains(strings.ToLower(comment), "deprecated") {
					found[keyNode.Value] = true
				}
			}
			return found
		}
	}
	return nil
}

func (m *Manifest) resolveDecl(decl *RunbookDecl) error {
	if decl.Name == "" {
		return fmt.Errorf("runbook declaration missing required field: name")
	}
	if decl.Location == "" {
		return fmt.Errorf("runbook %q missing required field: location", decl.Name)
	}
	decl.resolvedPath = filepath.Join(m.Root, decl.Location)
	return nil
}

// FindRunbook returns the declaration with the given logical name.
func (m *Manifest) FindRunbook(name string) (*RunbookDecl, bool) {
	for i := range m.Runbooks {
		if m.Runbooks[i].Name == name {
			return &m.Runbooks[i], true
		}
	}
	return nil, false
}

// ExpandRunbookFiles resolves a declaration to the ordered list of source
// files it covers: the single file, or every `.tx` file under the
// directory in lexicographic order.
func (m *Manifest) ExpandRunbookFiles(decl *RunbookDecl) ([]string, error) {
	info, err := os.Stat(decl.resolvedPath)
	if err != nil {
		return nil, fmt.Errorf("runbook %q: %w", decl.Name, err)
	}
	if !info.IsDir() {
		return []string{decl.resolvedPath}, nil
	}

	entries, err := os.ReadDir(decl.resolvedPath)
	if err != nil {
		return nil, fmt.Errorf("runbook %q: read directory: %w", decl.Name, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tx") {
			continue
		}
		files = append(files, filepath.Join(decl.resolvedPath, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ListEnvironments returns every declared environment name, for the LSP
// environment picker. "global" is included if present.
func (m *Manifest) ListEnvironments() []string {
	names := make([]string, 0, len(m.Environments))
	for name := range m.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EffectiveEnvironment computes global ⊕ name: name's entries win on
// conflict, absent name falls back to exactly "global", and a non-empty
// name that isn't declared is an UnknownEnvironmentError.
func (m *Manifest) EffectiveEnvironment(name string) (map[string]string, error) {
	global := m.Environments[GlobalEnvironment]

	if name == "" || name == GlobalEnvironment {
		return cloneEnv(global), nil
	}

	env, ok := m.Environments[name]
	if !ok {
		return nil, &UnknownEnvironmentError{Name: name}
	}

	merged := cloneEnv(global)
	for k, v := range env {
		merged[k] = v
	}
	return merged, nil
}

func cloneEnv(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// ApplyOverrides layers CLI `--input KEY=VALUE` overrides on top of an
// effective environment, per spec.md §3: "CLI input overrides layered on
// top win over any environment entry."
func ApplyOverrides(effective map[string]string, overrides map[string]string) map[string]string {
	out := cloneEnv(effective)
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// ParseOverride parses one "KEY=VALUE" CLI --input flag value.
func ParseOverride(raw string) (key, value string, err error) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid --input %q: expected KEY=VALUE", raw)
	}
	return parts[0], parts[1], nil
}
