package addon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// fixtureSchemaDoc is generated once and reused across fixture loads —
// the same "generate then compile" idiom the teacher uses in
// pkg/schema/schema.go for the runbook document itself, applied here to
// the one YAML-shaped artifact this core still owns: addon-spec fixtures.
var fixtureSchemaDoc interface{}

func init() {
	reflector := &jsonschema.Reflector{}
	schema := reflector.Reflect(&Namespace{})
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("addon: reflect fixture schema: %v", err))
	}
	if err := json.Unmarshal(data, &fixtureSchemaDoc); err != nil {
		panic(fmt.Sprintf("addon: decode fixture schema: %v", err))
	}
}

// LoadFixtureFile reads and strictly decodes one addon-spec fixture
// (namespace.addon.yaml), validates it against the reflected JSON Schema,
// and returns the resulting Namespace.
func LoadFixtureFile(path string) (*Namespace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open addon fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture parses one addon-spec fixture from an io.Reader.
func LoadFixture(r io.Reader) (*Namespace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read addon fixture: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ns Namespace
	if err := dec.Decode(&ns); err != nil {
		return nil, fmt.Errorf("decode addon fixture: %w", err)
	}

	if err := validateFixtureSchema(data); err != nil {
		return nil, fmt.Errorf("addon fixture failed schema validation: %w", err)
	}
	if ns.Name == "" {
		return nil, fmt.Errorf("addon fixture missing required field: namespace")
	}
	return &ns, nil
}

func validateFixtureSchema(yamlData []byte) error {
	var raw interface{}
	if err := yaml.Unmarshal(yamlData, &raw); err != nil {
		return err
	}
	jsonReady, err := jsonify(raw)
	if err != nil {
		return err
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("addon-fixture.json", fixtureSchemaDoc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("addon-fixture.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return sch.Validate(jsonReady)
}

// jsonify converts the map[interface{}]interface{} shape yaml.v3 can
// produce for untyped decodes into map[string]interface{}/[]interface{},
// which is what the JSON Schema validator expects.
func jsonify(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadFixtureDir loads every `*.addon.yaml` file in dir (lexicographic
// order) and builds a Registry from them.
func LoadFixtureDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read addon fixture dir: %w", err)
	}
	var namespaces []*Namespace
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".addon.yaml") {
			continue
		}
		ns, err := LoadFixtureFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		namespaces = append(namespaces, ns)
	}
	return BuildFromNamespaces(namespaces), nil
}
