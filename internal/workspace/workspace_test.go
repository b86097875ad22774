package workspace_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/rules"
	"github.com/txtx-tools/doctor/internal/workspace"
)

func testRegistry() *addon.Registry {
	return addon.BuildFromNamespaces([]*addon.Namespace{
		{
			Name: "evm",
			Actions: map[string]*addon.ActionSpec{
				"send_eth": {
					Name:    "send_eth",
					Inputs:  []addon.ParamSpec{{Name: "to", Type: "string", Required: true}},
					Outputs: []addon.OutputSpec{{Name: "tx_hash", Type: "string"}},
				},
			},
			Functions: map[string]*addon.FunctionSpec{
				"checksum": {Name: "checksum", ReturnType: "string", Doc: "checksums an address"},
			},
		},
	})
}

// writeProject creates a temp directory containing a manifest and a
// runbook file, returning their file:// URIs.
func writeProject(t *testing.T, manifestYAML, runbookSource string) (manifestURI, runbookURI string, dir string) {
	t.Helper()
	dir = t.TempDir()
	manifestPath := filepath.Join(dir, "txtx.yml")
	if err := os.WriteFile(manifestPath, []byte(manifestYAML), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	runbookPath := filepath.Join(dir, "main.tx")
	if err := os.WriteFile(runbookPath, []byte(runbookSource), 0o644); err != nil {
		t.Fatalf("write runbook: %v", err)
	}
	return "file://" + manifestPath, "file://" + runbookPath, dir
}

const sampleManifest = `
name: sample
environments:
  global:
    RPC_URL: "http://global.example"
  dev:
    RPC_URL: "http://dev.example"
`

const sampleRunbook = `addon "evm" {
}

action "deploy" "evm::send_eth" {
  to = input.RPC_URL
}
`

func TestOpenDocumentDiscoversManifestAndValidates(t *testing.T) {
	_, runbookURI, _ := writeProject(t, sampleManifest, sampleRunbook)
	w := workspace.New(testRegistry(), rules.Default())

	result := w.OpenDocument(runbookURI, []byte(sampleRunbook), 1)
	if !result.IsSuccess() {
		t.Fatalf("expected clean validation, got errors: %v", result.Errors())
	}
}

func TestChangeDocumentRevalidatesAgainstNewContent(t *testing.T) {
	_, runbookURI, _ := writeProject(t, sampleManifest, sampleRunbook)
	w := workspace.New(testRegistry(), rules.Default())
	w.OpenDocument(runbookURI, []byte(sampleRunbook), 1)

	broken := strings.Replace(sampleRunbook, "input.RPC_URL", "input.MISSING_KEY", 1)
	result := w.ChangeDocument(runbookURI, []byte(broken), 2)

	found := false
	for _, d := range result.Errors() {
		if strings.Contains(d.Message, "MISSING_KEY") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an error mentioning MISSING_KEY, got %v", result.Errors())
	}
}

func TestSetActiveEnvironmentInvalidatesCacheAndRevalidates(t *testing.T) {
	_, runbookURI, _ := writeProject(t, sampleManifest, sampleRunbook)
	w := workspace.New(testRegistry(), rules.Default())
	w.OpenDocument(runbookURI, []byte(sampleRunbook), 1)

	results := w.SetActiveEnvironment("dev")
	result, ok := results[runbookURI]
	if !ok {
		t.Fatalf("expected revalidation result for %s, got %v", runbookURI, results)
	}
	if !result.IsSuccess() {
		t.Fatalf("expected success under dev environment, got errors: %v", result.Errors())
	}
}

func TestUnknownEnvironmentReportsManifestError(t *testing.T) {
	_, runbookURI, _ := writeProject(t, sampleManifest, sampleRunbook)
	w := workspace.New(testRegistry(), rules.Default())
	w.OpenDocument(runbookURI, []byte(sampleRunbook), 1)

	results := w.SetActiveEnvironment("staging")
	result, ok := results[runbookURI]
	if !ok {
		t.Fatalf("expected a result for %s", runbookURI)
	}
	found := false
	for _, d := range result.Errors() {
		if d.Category == diagnostic.CategoryManifest && strings.Contains(d.Message, "staging") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unknown-environment manifest error, got %v", result.Errors())
	}
}

func TestCloseDocumentDropsDocumentButKeepsManifestCached(t *testing.T) {
	_, runbookURI, _ := writeProject(t, sampleManifest, sampleRunbook)
	w := workspace.New(testRegistry(), rules.Default())
	w.OpenDocument(runbookURI, []byte(sampleRunbook), 1)
	w.CloseDocument(runbookURI)

	if _, err := w.Validate(runbookURI); err == nil {
		t.Fatalf("expected Validate to fail once the document is closed")
	}

	// Reopening should not need to re-walk ancestor directories to
	// rediscover the manifest (it's still cached); validation should
	// succeed immediately.
	result := w.OpenDocument(runbookURI, []byte(sampleRunbook), 1)
	if !result.IsSuccess() {
		t.Fatalf("expected success after reopening, got errors: %v", result.Errors())
	}
}

func TestFindDefinitionResolvesActionReference(t *testing.T) {
	src := `addon "evm" {
}

action "deploy" "evm::send_eth" {
  to = input.RPC_URL
}

output "tx" {
  value = action.deploy.tx_hash
}
`
	_, runbookURI, _ := writeProject(t, sampleManifest, src)
	w := workspace.New(testRegistry(), rules.Default())
	w.OpenDocument(runbookURI, []byte(src), 1)

	idx := diagnostic.NewLineIndex([]byte(src))
	refOffset := strings.Index(src, "action.deploy") + len("action.")
	pos := idx.PositionFor(refOffset)

	span, ok := w.FindDefinition(runbookURI, pos)
	if !ok {
		t.Fatalf("expected to resolve action.deploy to its declaration")
	}
	declLine := idx.PositionFor(strings.Index(src, `action "deploy"`)).Line
	gotLine := idx.PositionFor(span.Start).Line
	if gotLine != declLine {
		t.Fatalf("expected definition at line %d, got line %d", declLine, gotLine)
	}
}

func TestCompletionAfterNamespaceSeparatorListsActionsAndFunctions(t *testing.T) {
	src := `addon "evm" {
}

action "deploy" "evm::
`
	_, runbookURI, _ := writeProject(t, sampleManifest, sampleRunbook)
	w := workspace.New(testRegistry(), rules.Default())
	w.OpenDocument(runbookURI, []byte(sampleRunbook), 1)
	w.ChangeDocument(runbookURI, []byte(src), 2)

	idx := diagnostic.NewLineIndex([]byte(src))
	offset := len(src)
	pos := idx.PositionFor(offset)

	items, ok := w.Completion(runbookURI, pos)
	if !ok {
		t.Fatalf("expected completion candidates after evm::")
	}
	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	foundAction, foundFn := false, false
	for _, l := range labels {
		if l == "send_eth" {
			foundAction = true
		}
		if l == "checksum" {
			foundFn = true
		}
	}
	if !foundAction || !foundFn {
		t.Fatalf("expected both send_eth and checksum, got %v", labels)
	}
}

func TestHoverMasksSensitiveInputValue(t *testing.T) {
	manifestYAML := `
name: sample
environments:
  global:
    API_SECRET_KEY: "abcdefghijklmnop"
`
	src := `addon "evm" {
}

action "deploy" "evm::send_eth" {
  to = input.API_SECRET_KEY
}
`
	_, runbookURI, _ := writeProject(t, manifestYAML, src)
	w := workspace.New(testRegistry(), rules.Default())
	w.OpenDocument(runbookURI, []byte(src), 1)

	idx := diagnostic.NewLineIndex([]byte(src))
	offset := strings.Index(src, "API_SECRET_KEY")
	pos := idx.PositionFor(offset)

	hover, ok := w.Hover(runbookURI, pos)
	if !ok {
		t.Fatalf("expected hover content for input.API_SECRET_KEY")
	}
	if strings.Contains(hover.Text, "abcdefghijklmnop") {
		t.Fatalf("expected masked value, got raw secret in %q", hover.Text)
	}
	if !strings.Contains(hover.Text, "•") {
		t.Fatalf("expected masking characters in %q", hover.Text)
	}
}

func TestListEnvironmentsReturnsManifestEnvironments(t *testing.T) {
	_, runbookURI, _ := writeProject(t, sampleManifest, sampleRunbook)
	w := workspace.New(testRegistry(), rules.Default())
	w.OpenDocument(runbookURI, []byte(sampleRunbook), 1)

	envs, err := w.ListEnvironments(runbookURI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(envs) != 2 || envs[0] != "dev" || envs[1] != "global" {
		t.Fatalf("expected [dev global], got %v", envs)
	}
}
