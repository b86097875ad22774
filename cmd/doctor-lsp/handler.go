package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/workspace"
)

const fileProtocol = "file://"

// handler dispatches one JSON-RPC method at a time over a single
// *workspace.Workspace, mirroring upbound-up/internal/xpls/handler.go's
// Handle(ctx, c, r) switch-on-r.Method shape.
type handler struct {
	ws *workspace.Workspace
}

func (h *handler) handle(ctx context.Context, conn *jsonrpc2.Conn, r *jsonrpc2.Request) (interface{}, error) {
	switch r.Method {
	case "initialize":
		return h.initialize(r)
	case "initialized":
		return nil, nil
	case "shutdown":
		return nil, nil
	case "exit":
		return nil, conn.Close()

	case "textDocument/didOpen":
		var params lsp.DidOpenTextDocumentParams
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		result := h.ws.OpenDocument(string(params.TextDocument.URI), []byte(params.TextDocument.Text), params.TextDocument.Version)
		h.publish(ctx, conn, params.TextDocument.URI, result)
		return nil, nil

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		if len(params.ContentChanges) == 0 {
			return nil, nil
		}
		content := params.ContentChanges[len(params.ContentChanges)-1].Text
		result := h.ws.ChangeDocument(string(params.TextDocument.URI), []byte(content), params.TextDocument.Version)
		h.publish(ctx, conn, params.TextDocument.URI, result)
		return nil, nil

	case "textDocument/didSave":
		var params lsp.DidSaveTextDocumentParams
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		result := h.ws.SaveDocument(string(params.TextDocument.URI))
		h.publish(ctx, conn, params.TextDocument.URI, result)
		return nil, nil

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		h.ws.CloseDocument(string(params.TextDocument.URI))
		return nil, nil

	case "textDocument/definition":
		var params lsp.TextDocumentPositionParams
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		span, ok := h.ws.FindDefinition(string(params.TextDocument.URI), fromLSPPosition(params.Position))
		if !ok {
			return []lsp.Location{}, nil
		}
		return []lsp.Location{h.spanToLocation(span)}, nil

	case "textDocument/hover":
		var params lsp.TextDocumentPositionParams
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		content, ok := h.ws.Hover(string(params.TextDocument.URI), fromLSPPosition(params.Position))
		if !ok {
			return lsp.Hover{}, nil
		}
		return lsp.Hover{Contents: []lsp.MarkedString{{Language: "", Value: content.Text}}}, nil

	case "textDocument/completion":
		var params lsp.TextDocumentPositionParams
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		items, ok := h.ws.Completion(string(params.TextDocument.URI), fromLSPPosition(params.Position))
		if !ok {
			return lsp.CompletionList{Items: []lsp.CompletionItem{}}, nil
		}
		out := make([]lsp.CompletionItem, 0, len(items))
		for _, it := range items {
			out = append(out, lsp.CompletionItem{Label: it.Label, Detail: it.Detail})
		}
		return lsp.CompletionList{Items: out}, nil

	case "workspace/environments":
		var params struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		names, err := h.ws.ListEnvironments(params.URI)
		if err != nil {
			return []string{}, nil
		}
		return names, nil

	case "workspace/setEnvironment":
		var params struct {
			Environment string `json:"environment"`
		}
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
		results := h.ws.SetActiveEnvironment(params.Environment)
		for uri, result := range results {
			h.publish(ctx, conn, lsp.DocumentURI(uri), result)
		}
		return nil, nil

	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", r.Method)}
	}
}

func (h *handler) initialize(r *jsonrpc2.Request) (interface{}, error) {
	var params lsp.InitializeParams
	if r.Params != nil {
		if err := json.Unmarshal(*r.Params, &params); err != nil {
			return nil, err
		}
	}
	kind := lsp.TDSKFull
	return lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Kind: &kind,
			},
			DefinitionProvider: true,
			HoverProvider:      true,
			CompletionProvider: &lsp.CompletionOptions{TriggerCharacters: []string{".", ":"}},
		},
	}, nil
}

// publish sends a publishDiagnostics notification for uri, translating
// diagnostic.Diagnostic spans (1-based, per-file) into lsp.Diagnostic
// ranges (0-based, relative to the document sent with the notification).
func (h *handler) publish(ctx context.Context, conn *jsonrpc2.Conn, uri lsp.DocumentURI, result *diagnostic.ValidationResult) {
	diags := make([]lsp.Diagnostic, 0, result.Count())
	idx := diagnostic.NewLineIndexCache()
	for _, d := range result.All() {
		diags = append(diags, h.toLSPDiagnostic(d, idx))
	}
	if diags == nil {
		diags = []lsp.Diagnostic{}
	}
	_ = conn.Notify(ctx, "textDocument/publishDiagnostics", &lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func (h *handler) toLSPDiagnostic(d *diagnostic.Diagnostic, idx *diagnostic.LineIndexCache) lsp.Diagnostic {
	rng := lsp.Range{}
	if d.Span != nil {
		li := idx.Get(d.Span.File, func() []byte {
			content, _ := h.ws.ContentForPath(d.Span.File)
			return content
		})
		start := li.PositionFor(d.Span.Start)
		end := li.PositionFor(d.Span.End)
		rng = lsp.Range{
			Start: lsp.Position{Line: start.Line - 1, Character: start.Column - 1},
			End:   lsp.Position{Line: end.Line - 1, Character: end.Column - 1},
		}
	}
	return lsp.Diagnostic{
		Range:    rng,
		Severity: toLSPSeverity(d.Severity),
		Source:   "doctor",
		Message:  d.Message,
	}
}

func toLSPSeverity(sev diagnostic.Severity) lsp.DiagnosticSeverity {
	switch sev {
	case diagnostic.Error:
		return lsp.Error
	case diagnostic.Warning:
		return lsp.Warning
	case diagnostic.Info:
		return lsp.Information
	default:
		return lsp.Hint
	}
}

func fromLSPPosition(pos lsp.Position) diagnostic.Position {
	return diagnostic.Position{Line: pos.Line + 1, Column: pos.Character + 1}
}

func (h *handler) spanToLocation(span *diagnostic.Span) lsp.Location {
	content, _ := h.ws.ContentForPath(span.File)
	idx := diagnostic.NewLineIndex(content)
	start := idx.PositionFor(span.Start)
	end := idx.PositionFor(span.End)
	return lsp.Location{
		URI: lsp.DocumentURI(fileProtocol + span.File),
		Range: lsp.Range{
			Start: lsp.Position{Line: start.Line - 1, Character: start.Column - 1},
			End:   lsp.Position{Line: end.Line - 1, Character: end.Column - 1},
		},
	}
}
