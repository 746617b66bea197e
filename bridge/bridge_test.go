package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/plugsql/plugsql/catalog"
	"github.com/plugsql/plugsql/sandbox"
)

func testBridge(t *testing.T, launcher PluginLauncher) (*Bridge, *catalog.MemoryEngine) {
	t.Helper()
	engine := catalog.NewMemoryEngine(nil)
	b, err := New(Options{
		Launcher:        launcher,
		Engine:          engine,
		SandboxDefaults: defaultSandbox(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b, engine
}

func TestNewRequiresLauncherAndEngine(t *testing.T) {
	if _, err := New(Options{Engine: catalog.NewMemoryEngine(nil)}); err == nil {
		t.Error("New() without launcher error = nil, want error")
	}
	if _, err := New(Options{Launcher: freshLauncher(nil)}); err == nil {
		t.Error("New() without engine error = nil, want error")
	}
}

func TestDefineInstallsCallableFunction(t *testing.T) {
	launcher := freshLauncher(contractExports(chatgptMetadata, "chatgpt", func(input []byte) ([]byte, error) {
		var in struct {
			Prompt  string `json:"prompt"`
			Payload string `json:"payload"`
		}
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"response": in.Prompt + " " + in.Payload})
	}))
	b, engine := testBridge(t, launcher)

	if err := b.Define(context.Background(), "chatgpt.wasm", "chatgpt"); err != nil {
		t.Fatalf("Define() error = %v", err)
	}

	def, ok := engine.Lookup("chatgpt")
	if !ok {
		t.Fatal("Lookup(chatgpt) = false, function was not installed")
	}
	if len(def.Params) != 2 || def.ReturnSQLType != "TEXT" {
		t.Errorf("definition = %d params, return %s", len(def.Params), def.ReturnSQLType)
	}

	// positional args bind to sorted parameter names: payload, then prompt
	got, err := engine.Call(context.Background(), "chatgpt", "the payload", "summarize")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "summarize the payload" {
		t.Errorf("Call() = %v, want %q", got, "summarize the payload")
	}
}

func TestDefineReplacesExistingFunction(t *testing.T) {
	first := contractExports(chatgptMetadata, "chatgpt", okBody(`{"response":"v1"}`))
	second := contractExports(`{
		"entryPoint": "chatgpt",
		"parameters": {"prompt": "String"},
		"returnType": "String",
		"returnField": "response"
	}`, "chatgpt", okBody(`{"response":"v2"}`))

	exports := first
	launcher := &fakeLauncher{handleFor: func(string) *fakeHandle {
		return &fakeHandle{exports: exports}
	}}
	b, engine := testBridge(t, launcher)

	if err := b.Define(context.Background(), "chatgpt.wasm", "chatgpt"); err != nil {
		t.Fatalf("Define() #1 error = %v", err)
	}
	exports = second
	if err := b.Define(context.Background(), "chatgpt.wasm", "chatgpt"); err != nil {
		t.Fatalf("Define() #2 error = %v", err)
	}

	def, _ := engine.Lookup("chatgpt")
	if len(def.Params) != 1 {
		t.Fatalf("len(Params) = %d, want replacement's 1", len(def.Params))
	}
	got, err := engine.Call(context.Background(), "chatgpt", "hi")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "v2" {
		t.Errorf("Call() = %v, want v2", got)
	}
}

func TestDefineAbortsOnBrokenContract(t *testing.T) {
	launcher := freshLauncher(map[string]func([]byte) ([]byte, error){
		"run": okBody(`{}`),
	})
	b, engine := testBridge(t, launcher)

	err := b.Define(context.Background(), "broken.wasm", "broken")
	var mdErr *MetadataError
	if !errors.As(err, &mdErr) || mdErr.Kind != NoContract {
		t.Fatalf("Define() error = %v, want NoContract", err)
	}
	if _, ok := engine.Lookup("broken"); ok {
		t.Error("Lookup(broken) = true, nothing should be installed after a contract failure")
	}
}

func TestDefineAbortsOnInvalidExposedName(t *testing.T) {
	launcher := freshLauncher(contractExports(chatgptMetadata, "chatgpt", okBody(`{"response":"ok"}`)))
	b, engine := testBridge(t, launcher)

	if err := b.Define(context.Background(), "chatgpt.wasm", "not a name"); err == nil {
		t.Fatal("Define() with invalid exposed name error = nil, want error")
	}
	if _, ok := engine.Lookup("not a name"); ok {
		t.Error("invalid name was installed")
	}
}

func TestCallFailureCollapsesToNullByDefault(t *testing.T) {
	launcher := freshLauncher(contractExports(chatgptMetadata, "chatgpt", func([]byte) ([]byte, error) {
		return nil, &sandbox.CallError{Kind: sandbox.CallTimeout, Function: "chatgpt"}
	}))
	b, engine := testBridge(t, launcher)

	if err := b.Define(context.Background(), "chatgpt.wasm", "chatgpt"); err != nil {
		t.Fatalf("Define() error = %v", err)
	}

	got, err := engine.Call(context.Background(), "chatgpt", "a", "b")
	if err != nil {
		t.Fatalf("Call() error = %v, want NULL fallback", err)
	}
	if got != nil {
		t.Errorf("Call() = %v, want nil", got)
	}
}

func TestCallFailurePropagatesUnderStrictPolicy(t *testing.T) {
	launcher := freshLauncher(contractExports(chatgptMetadata, "chatgpt", func([]byte) ([]byte, error) {
		return nil, &sandbox.CallError{Kind: sandbox.CallTrap, Function: "chatgpt"}
	}))
	engine := catalog.NewMemoryEngine(nil)
	b, err := New(Options{
		Launcher: launcher,
		Engine:   engine,
		Policy:   catalog.PropagateFailure,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := b.Define(context.Background(), "chatgpt.wasm", "chatgpt"); err != nil {
		t.Fatalf("Define() error = %v", err)
	}

	_, err = engine.Call(context.Background(), "chatgpt", "a", "b")
	var callErr *sandbox.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Call() error = %v, want propagated *sandbox.CallError", err)
	}
}

func TestMetadataClosesHandle(t *testing.T) {
	handle := &fakeHandle{exports: contractExports(chatgptMetadata, "chatgpt", okBody(`{}`))}
	b, _ := testBridge(t, staticLauncher(handle))

	md, err := b.Metadata(context.Background(), "chatgpt.wasm")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if md.EntryPoint != "chatgpt" {
		t.Errorf("EntryPoint = %q", md.EntryPoint)
	}
	if !handle.wasClosed() {
		t.Error("handle was not closed after metadata resolution")
	}
}

func TestMetadataReportsCloseError(t *testing.T) {
	handle := &fakeHandle{
		exports:  contractExports(chatgptMetadata, "chatgpt", okBody(`{}`)),
		closeErr: errors.New("runtime shutdown failed"),
	}
	b, _ := testBridge(t, staticLauncher(handle))

	if _, err := b.Metadata(context.Background(), "chatgpt.wasm"); err == nil {
		t.Error("Metadata() error = nil, want close error surfaced")
	}
}
