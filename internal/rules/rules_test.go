package rules_test

import (
	"strings"
	"testing"

	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/rules"
	"github.com/txtx-tools/doctor/internal/validate"
)

type fakeManifest struct{ deprecated map[string]bool }

func (f fakeManifest) DeprecatedInputs() map[string]bool { return f.deprecated }

func TestDefaultOrder(t *testing.T) {
	set := rules.Default()
	if len(set) != 8 {
		t.Fatalf("expected 8 built-in rules, got %d", len(set))
	}
	if set[0].Name() != "InputDefined" {
		t.Fatalf("expected InputDefined first, got %s", set[0].Name())
	}
	if set[len(set)-1].Name() != "CircularDependency" {
		t.Fatalf("expected CircularDependency last, got %s", set[len(set)-1].Name())
	}
}

func TestDeprecatedInputRule(t *testing.T) {
	registry := addon.BuildFromNamespaces(nil)
	e := validate.NewEngine(registry, rules.Default())
	result := e.Validate(validate.Request{
		Source:    []byte("variable \"x\" { value = input.OLD_KEY }"),
		File:      "r.tx",
		Effective: map[string]string{"OLD_KEY": "1"},
		Manifest:  fakeManifest{deprecated: map[string]bool{"OLD_KEY": true}},
	})
	found := false
	for _, d := range result.Warnings() {
		if strings.Contains(d.Message, "OLD_KEY") && strings.Contains(d.Message, "deprecated") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DeprecatedInput warning, got %v", result.Warnings())
	}
}

func TestDeprecatedInputRuleNoManifest(t *testing.T) {
	registry := addon.BuildFromNamespaces(nil)
	e := validate.NewEngine(registry, rules.Default())
	result := e.Validate(validate.Request{
		Source:    []byte("variable \"x\" { value = input.KEY }"),
		File:      "r.tx",
		Effective: map[string]string{"KEY": "1"},
	})
	for _, d := range result.Warnings() {
		if strings.Contains(d.Message, "deprecated") {
			t.Fatalf("did not expect a deprecation warning with no manifest, got %v", d.Message)
		}
	}
}

func TestInputNamingConventionAcceptsSnakeCase(t *testing.T) {
	registry := addon.BuildFromNamespaces(nil)
	e := validate.NewEngine(registry, rules.Default())
	result := e.Validate(validate.Request{Source: []byte(`input "chain_id" {}`), File: "r.tx"})
	for _, d := range result.Warnings() {
		if strings.Contains(d.Message, "chain_id") {
			t.Fatalf("snake_case input should not warn, got %v", d.Message)
		}
	}
}
