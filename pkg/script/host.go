// Package script runs tengo scripts against a fetch.Manager.
//
// Scripts import the "url" module to start fetches. The host runs the
// script body and then keeps dispatching completions, invoking script
// callbacks on its own goroutine, until no request is active.
package script

import (
	"context"
	"os"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/parser"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/fetchurl/internal/logger"
	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/fetch"
)

// ModuleName is the import name of the fetch module.
const ModuleName = "url"

// DefaultModules are the stdlib modules available to scripts.
var DefaultModules = []string{"fmt", "json", "math", "text", "times", "base64", "hex", "enum"}

// Host compiles and runs one script.
type Host struct {
	m         *fetch.Manager
	stdlib    []string
	vars      map[string]interface{}
	maxAllocs int64

	bytecode      *tengo.Bytecode
	globals       []tengo.Object
	globalIndexes map[string]int
	ctx           context.Context
}

// Option customizes a Host.
type Option func(*Host)

// WithModules replaces the stdlib modules made importable.
func WithModules(names ...string) Option {
	return func(h *Host) {
		h.stdlib = names
	}
}

// WithVariable predefines a global variable.
func WithVariable(name string, value interface{}) Option {
	return func(h *Host) {
		h.vars[name] = value
	}
}

// WithMaxAllocs bounds object allocations per VM run. -1 is unlimited.
func WithMaxAllocs(n int64) Option {
	return func(h *Host) {
		h.maxAllocs = n
	}
}

// NewHost creates a host driving m.
func NewHost(m *fetch.Manager, opts ...Option) *Host {
	h := &Host{
		m:         m,
		stdlib:    DefaultModules,
		vars:      make(map[string]interface{}),
		maxAllocs: -1,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Manager returns the manager the host drives.
func (h *Host) Manager() *fetch.Manager {
	return h.m
}

// Compile parses and compiles src. name is used in error positions.
func (h *Host) Compile(name string, src []byte) error {
	modules := stdlib.GetModuleMap(h.stdlib...)
	modules.AddBuiltinModule(ModuleName, h.moduleAttrs())

	symbols := tengo.NewSymbolTable()
	globals := make([]tengo.Object, tengo.GlobalsSize)
	for varName, value := range h.vars {
		obj, err := tengo.FromInterface(value)
		if err != nil {
			return errors.Wrapf(errors.ErrScriptCompile, "variable %s: %v", varName, err)
		}
		symbol := symbols.Define(varName)
		globals[symbol.Index] = obj
	}

	fileSet := parser.NewFileSet()
	srcFile := fileSet.AddFile(name, -1, len(src))
	p := parser.NewParser(srcFile, src, nil)
	file, err := p.ParseFile()
	if err != nil {
		return errors.Wrapf(errors.ErrScriptCompile, "%s: %v", name, err)
	}

	c := tengo.NewCompiler(srcFile, symbols, nil, modules, nil)
	if err := c.Compile(file); err != nil {
		return errors.Wrapf(errors.ErrScriptCompile, "%s: %v", name, err)
	}

	globalIndexes := make(map[string]int)
	for _, symName := range symbols.Names() {
		symbol, _, _ := symbols.Resolve(symName, false)
		if symbol.Scope == tengo.ScopeGlobal {
			globalIndexes[symName] = symbol.Index
		}
	}

	bytecode := c.Bytecode()
	bytecode.RemoveDuplicates()

	h.bytecode = bytecode
	h.globals = globals
	h.globalIndexes = globalIndexes
	return nil
}

// Run executes the compiled script and then dispatches completions until
// no request is active. Cancelling ctx aborts the script and shuts the
// manager down.
func (h *Host) Run(ctx context.Context) error {
	if h.bytecode == nil {
		return errors.ErrNotCompiled
	}
	h.ctx = ctx
	defer func() { h.ctx = context.Background() }()

	if err := h.runVM(h.bytecode); err != nil {
		_ = h.m.Shutdown()
		return errors.Wrap(errors.ErrScriptRuntime, err.Error())
	}
	if err := ctx.Err(); err != nil {
		_ = h.m.Shutdown()
		return errors.Wrap(err, "script interrupted")
	}

	for h.m.Active() > 0 {
		n, err := h.m.Wait(ctx)
		if err != nil {
			_ = h.m.Shutdown()
			return errors.Wrap(err, "script interrupted")
		}
		logger.Debugf("Dispatched %d completion(s), %d request(s) still active", n, h.m.Active())
	}
	h.m.Poll()
	return nil
}

// RunFile compiles and runs the script at path.
func (h *Host) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read script %s", path)
	}
	if err := h.Compile(path, src); err != nil {
		return err
	}
	return h.Run(ctx)
}

// Get returns the Go value of a global variable after Run.
func (h *Host) Get(name string) (interface{}, bool) {
	idx, ok := h.globalIndexes[name]
	if !ok || h.globals[idx] == nil {
		return nil, false
	}
	return tengo.ToInterface(h.globals[idx]), true
}

func (h *Host) runVM(bytecode *tengo.Bytecode) error {
	vm := tengo.NewVM(bytecode, h.globals, h.maxAllocs)
	stop := context.AfterFunc(h.ctx, vm.Abort)
	defer stop()
	return vm.Run()
}
