package script

import (
	"math"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/parser"

	"github.com/glorpus-work/fetchurl/pkg/errors"
	"github.com/glorpus-work/fetchurl/pkg/fetch"
)

// callback adapts a tengo callable to fetch.Callback.
type callback struct {
	host *Host
	fn   tengo.Object
}

func (c *callback) Invoke(req *fetch.Request, out fetch.Outcome) error {
	return c.host.call(c.fn, outcomeArgs(&Request{req: req}, out))
}

// outcomeArgs builds (request, body) or (request, undefined, "failed", code).
func outcomeArgs(req *Request, out fetch.Outcome) []tengo.Object {
	if out.OK {
		return []tengo.Object{req, &tengo.String{Value: string(out.Body)}}
	}
	return []tengo.Object{
		req,
		tengo.UndefinedValue,
		&tengo.String{Value: out.Err},
		&tengo.Int{Value: int64(out.Code)},
	}
}

// fitArgs pads or trims args to the parameter count of a fixed-arity function.
func fitArgs(fn *tengo.CompiledFunction, args []tengo.Object) []tengo.Object {
	if fn.VarArgs || len(args) == fn.NumParameters {
		return args
	}
	if len(args) > fn.NumParameters {
		return args[:fn.NumParameters]
	}
	padded := make([]tengo.Object, fn.NumParameters)
	copy(padded, args)
	for i := len(args); i < len(padded); i++ {
		padded[i] = tengo.UndefinedValue
	}
	return padded
}

// call invokes fn on the host goroutine. Compiled functions run in a
// short-lived VM whose main function loads fn and its arguments as
// constants, calls it and suspends. The VM shares the script's globals.
func (h *Host) call(fn tengo.Object, args []tengo.Object) error {
	compiled, ok := fn.(*tengo.CompiledFunction)
	if !ok {
		if !fn.CanCall() {
			return errors.ErrNotCallable
		}
		_, err := fn.Call(args...)
		return err
	}
	if h.bytecode == nil {
		return errors.ErrNotCompiled
	}

	args = fitArgs(compiled, args)
	base := len(h.bytecode.Constants)
	if base+len(args) >= math.MaxUint16 {
		return errors.Wrap(errors.ErrScriptRuntime, "too many constants for callback")
	}

	constants := make([]tengo.Object, 0, base+1+len(args))
	constants = append(constants, h.bytecode.Constants...)
	constants = append(constants, compiled)
	constants = append(constants, args...)

	insts := tengo.MakeInstruction(parser.OpConstant, base)
	for i := range args {
		insts = append(insts, tengo.MakeInstruction(parser.OpConstant, base+1+i)...)
	}
	insts = append(insts, tengo.MakeInstruction(parser.OpCall, len(args), 0)...)
	insts = append(insts, tengo.MakeInstruction(parser.OpPop)...)
	insts = append(insts, parser.OpSuspend)

	trampoline := &tengo.Bytecode{
		FileSet:      h.bytecode.FileSet,
		MainFunction: &tengo.CompiledFunction{Instructions: insts},
		Constants:    constants,
	}
	if err := h.runVM(trampoline); err != nil {
		return errors.Wrap(errors.ErrScriptRuntime, err.Error())
	}
	return nil
}
