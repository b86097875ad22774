// doctor is the stateless CLI surface of the validation core (C1): it
// loads a manifest, resolves one runbook's files, runs the two-pass
// engine plus rule set over them, and prints the result in one of three
// formats — spec.md §6 "CLI surface of the diagnostic tool." Grounded on
// cmd/gert/main.go's rootCmd/.env idiom, generalized from a single
// `validate` subcommand to the flat invocation shape the spec defines.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/format"
	"github.com/txtx-tools/doctor/internal/manifest"
	"github.com/txtx-tools/doctor/internal/merge"
	"github.com/txtx-tools/doctor/internal/rules"
	"github.com/txtx-tools/doctor/internal/validate"
)

var (
	manifestFilePath string
	environmentName  string
	inputOverrides   []string
	formatFlag       string
	addonSpecsPath   string
)

func main() {
	loadDotEnv()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

// loadDotEnv reads a .env file from the working directory, the same
// idiom as cmd/gert/main.go: KEY=VALUE lines, '#' comments and blanks
// skipped, existing environment variables never overwritten.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:           "doctor [runbook-name]",
	Short:         "Validate a txtx runbook against its manifest and addon specs",
	Args:          cobra.MaximumNArgs(1),
	RunE:          runValidate,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&manifestFilePath, "manifest-file-path", "",
		"Path to txtx.yml/txtx.yaml (default: discovered from the working directory's ancestors)")
	rootCmd.Flags().StringVar(&environmentName, "environment", "",
		"Environment to validate against (default: global)")
	rootCmd.Flags().StringArrayVar(&inputOverrides, "input", nil,
		"Override an effective input (KEY=VALUE), repeatable")
	rootCmd.Flags().StringVar(&formatFlag, "format", "auto",
		"Output format: auto, pretty, json, or quickfix")
	rootCmd.Flags().StringVar(&addonSpecsPath, "addon-specs-path", "",
		"Directory of *.addon.yaml fixtures (default: <manifest-dir>/addons if present)")
}

// runValidate returns a non-nil error only for invocation/manifest-level
// failures (exit code 2, per main's Execute error path); diagnostics
// found in an otherwise-loadable runbook surface as exit code 1 via the
// explicit os.Exit call below instead.
func runValidate(cmd *cobra.Command, args []string) error {
	mode, err := format.ParseMode(formatFlag)
	if err != nil {
		return err
	}

	var runbookArg string
	if len(args) == 1 {
		runbookArg = args[0]
	}

	resolvedManifestPath, err := resolveManifestPath()
	if err != nil {
		return err
	}

	m, warnings, err := manifest.LoadWithWarnings(resolvedManifestPath)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: manifest: unrecognized top-level key %q\n", w)
	}

	files, err := resolveRunbookFiles(m, runbookArg)
	if err != nil {
		return err
	}

	registry, err := loadRegistry(addonSpecsPath, m)
	if err != nil {
		return err
	}

	effective, unknownEnv, err := resolveEffectiveInputs(m, environmentName, inputOverrides)
	if err != nil {
		return err
	}

	engine := validate.NewEngine(registry, rules.Default())
	result, err := validateRunbook(engine, files, effective, environmentName, m)
	if err != nil {
		return err
	}
	if unknownEnv != nil {
		result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryManifest, unknownEnv.Error()))
	}

	readSource := func(file string) []byte {
		b, _ := os.ReadFile(file)
		return b
	}
	resolved := format.Resolve(mode, os.Stdout.Fd())
	switch resolved {
	case format.JSON:
		report := format.BuildReport(result, len(files), readSource)
		if err := format.WriteJSON(os.Stdout, report); err != nil {
			return err
		}
	case format.Quickfix:
		format.WriteQuickfix(os.Stdout, result, readSource)
	default:
		format.WritePretty(os.Stdout, result, readSource)
	}

	if len(result.Errors()) > 0 {
		os.Exit(1)
	}
	return nil
}

func resolveManifestPath() (string, error) {
	if manifestFilePath != "" {
		return manifestFilePath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	found, ok := manifest.FindFile(cwd)
	if !ok {
		return "", fmt.Errorf("no txtx.yml/txtx.yaml found in %s or its ancestors", cwd)
	}
	return found, nil
}

// resolveRunbookFiles picks the manifest's sole runbook declaration when
// name is empty, or looks the name up explicitly, then expands it to its
// ordered file list (C7).
func resolveRunbookFiles(m *manifest.Manifest, name string) ([]string, error) {
	if name == "" {
		if len(m.Runbooks) == 1 {
			return m.ExpandRunbookFiles(&m.Runbooks[0])
		}
		names := make([]string, len(m.Runbooks))
		for i, decl := range m.Runbooks {
			names[i] = decl.Name
		}
		sort.Strings(names)
		return nil, fmt.Errorf("manifest declares %d runbooks (%s); specify one by name", len(m.Runbooks), strings.Join(names, ", "))
	}
	decl, ok := m.FindRunbook(name)
	if !ok {
		return nil, fmt.Errorf("no runbook named %q in manifest", name)
	}
	return m.ExpandRunbookFiles(decl)
}

// loadRegistry loads addon-spec fixtures from specsPath, or from
// "<manifest root>/addons" when specsPath is empty and that directory
// exists, or returns an empty registry when neither is available —
// addon actions/functions then simply never resolve, which the engine
// reports as unknown-addon diagnostics rather than a crash.
func loadRegistry(specsPath string, m *manifest.Manifest) (*addon.Registry, error) {
	if specsPath == "" {
		candidate := filepath.Join(m.Root, "addons")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			specsPath = candidate
		}
	}
	if specsPath == "" {
		return addon.BuildFromNamespaces(nil), nil
	}
	return addon.LoadFixtureDir(specsPath)
}

// resolveEffectiveInputs computes global ⊕ environment ⊕ CLI overrides.
// An unknown named environment is not an invocation failure — per
// spec.md §4.9 it still validates, with an empty effective-inputs set and
// a single unknown-environment error folded into the result afterward.
func resolveEffectiveInputs(m *manifest.Manifest, envName string, overrides []string) (map[string]string, *manifest.UnknownEnvironmentError, error) {
	effective, err := m.EffectiveEnvironment(envName)
	var unknownEnv *manifest.UnknownEnvironmentError
	if err != nil {
		ue, ok := err.(*manifest.UnknownEnvironmentError)
		if !ok {
			return nil, nil, err
		}
		unknownEnv = ue
		effective = map[string]string{}
	}

	parsed := map[string]string{}
	for _, raw := range overrides {
		k, v, err := manifest.ParseOverride(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("--input %s: %w", raw, err)
		}
		parsed[k] = v
	}
	return manifest.ApplyOverrides(effective, parsed), unknownEnv, nil
}

// validateRunbook runs the engine over files, merging them first (C7)
// when the declaration resolved to more than one.
func validateRunbook(engine *validate.Engine, files []string, effective map[string]string, envName string, m *manifest.Manifest) (*diagnostic.ValidationResult, error) {
	if len(files) == 1 {
		src, err := os.ReadFile(files[0])
		if err != nil {
			return nil, fmt.Errorf("read runbook file: %w", err)
		}
		return engine.Validate(validate.Request{
			Source: src, File: files[0], Effective: effective, EnvName: envName, Manifest: m,
		}), nil
	}

	contents := make(map[string][]byte, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read runbook file %s: %w", f, err)
		}
		contents[f] = b
	}
	merged := merge.Merge(contents)
	result := engine.Validate(validate.Request{
		Source: merged.Source, File: "<merged>", Effective: effective, EnvName: envName, Manifest: m,
	})
	return merged.RemapDiagnostics(result), nil
}
