// doctor-lsp is the language-server entrypoint for the workspace state (C8):
// it speaks LSP over stdio, backed by an internal/workspace.Workspace,
// exposing the standard text-synchronization/navigation methods plus the
// custom workspace/environments and workspace/setEnvironment extensions —
// spec.md §6 "LSP surface of the diagnostic tool." Grounded on
// upbound-up/internal/xpls's Handler/Dispatcher-over-stdio shape — that
// package's flat handler.go and transport.go use only sourcegraph/go-lsp and
// sourcegraph/jsonrpc2, unlike its newer handler/ and dispatcher/ subpackages
// which pull in golang.org/x/tools/lsp/protocol, a dependency this module
// does not carry.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/rules"
	"github.com/txtx-tools/doctor/internal/workspace"
)

func main() {
	addonSpecsPath := os.Getenv("DOCTOR_ADDON_SPECS_PATH")
	registry, err := loadRegistry(addonSpecsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "doctor-lsp: error:", err)
		os.Exit(2)
	}

	ws := workspace.New(registry, rules.Default())
	h := &handler{ws: ws}

	ctx := context.Background()
	stream := jsonrpc2.NewBufferedStream(stdrwc{}, jsonrpc2.VSCodeObjectCodec{})
	<-jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(h.handle)).DisconnectNotify()
}

func loadRegistry(specsPath string) (*addon.Registry, error) {
	if specsPath == "" {
		return addon.BuildFromNamespaces(nil), nil
	}
	return addon.LoadFixtureDir(specsPath)
}

// stdrwc adapts stdin/stdout into the io.ReadWriteCloser jsonrpc2 expects,
// the same shape as upbound-up/internal/xpls/transport.go's StdRWC.
type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdrwc) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

var _ io.ReadWriteCloser = stdrwc{}
