package script

import (
	"time"

	"github.com/d5/tengo/v2"

	"github.com/glorpus-work/fetchurl/pkg/fetch"
)

// requestFuncs take the request as first argument. They back both the
// module functions and the request methods.
var requestFuncs = map[string]tengo.CallableFunc{
	"cancel": requestFunc(func(r *fetch.Request) tengo.Object {
		return boolObject(r.Cancel())
	}),
	"length": requestFunc(func(r *fetch.Request) tengo.Object {
		return &tengo.Int{Value: r.Length()}
	}),
	"success": requestFunc(func(r *fetch.Request) tengo.Object {
		return boolObject(r.Success())
	}),
	"isActive": requestFunc(func(r *fetch.Request) tengo.Object {
		return boolObject(r.IsActive())
	}),
	"getURL": requestFunc(func(r *fetch.Request) tengo.Object {
		return &tengo.String{Value: r.URL()}
	}),
	"getPostData": requestFunc(func(r *fetch.Request) tengo.Object {
		post, ok := r.PostData()
		if !ok {
			return tengo.UndefinedValue
		}
		return &tengo.String{Value: post}
	}),
	"getCallback": requestFunc(func(r *fetch.Request) tengo.Object {
		cb, ok := r.Callback()
		if !ok {
			return tengo.UndefinedValue
		}
		if sc, ok := cb.(*callback); ok {
			return sc.fn
		}
		return tengo.UndefinedValue
	}),
	"getFileSize": requestFunc(func(r *fetch.Request) tengo.Object {
		return &tengo.Int{Value: r.FileSize()}
	}),
	"getFileTime": requestFunc(func(r *fetch.Request) tengo.Object {
		formatted, raw, ok := r.FileTime()
		if !ok {
			return tengo.UndefinedValue
		}
		return &tengo.Array{Value: []tengo.Object{
			&tengo.String{Value: formatted},
			&tengo.String{Value: raw},
		}}
	}),
	"getHttpCode": requestFunc(func(r *fetch.Request) tengo.Object {
		return &tengo.Int{Value: int64(r.HTTPCode())}
	}),
	"getHandle": requestFunc(func(r *fetch.Request) tengo.Object {
		return &tengo.Int{Value: int64(r.Handle())}
	}),
}

func requestFunc(fn func(r *fetch.Request) tengo.Object) tengo.CallableFunc {
	return func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		obj, ok := args[0].(*Request)
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{
				Name:     "request",
				Expected: RequestTypeName,
				Found:    args[0].TypeName(),
			}
		}
		return fn(obj.req), nil
	}
}

func boolObject(b bool) tengo.Object {
	if b {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func (h *Host) moduleAttrs() map[string]tengo.Object {
	attrs := map[string]tengo.Object{
		"fetch":  &tengo.UserFunction{Name: "fetch", Value: h.fetch},
		"active": &tengo.UserFunction{Name: "active", Value: h.active},
		"lookup": &tengo.UserFunction{Name: "lookup", Value: h.lookup},
	}
	for name, fn := range requestFuncs {
		attrs[name] = &tengo.UserFunction{Name: name, Value: fn}
	}
	return attrs
}

// fetch(url [, post | options] [, callback])
func (h *Host) fetch(args ...tengo.Object) (tengo.Object, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, tengo.ErrWrongNumArguments
	}
	rawURL, ok := args[0].(*tengo.String)
	if !ok {
		return nil, tengo.ErrInvalidArgumentType{Name: "url", Expected: "string", Found: args[0].TypeName()}
	}

	var opts fetch.Options
	var cb fetch.Callback
	rest := args[1:]

	if len(rest) > 0 {
		switch arg := rest[0].(type) {
		case *tengo.String:
			post := arg.Value
			opts.Post = &post
			rest = rest[1:]
		case *tengo.Map:
			if err := parseOptions(arg.Value, &opts); err != nil {
				return nil, err
			}
			rest = rest[1:]
		case *tengo.ImmutableMap:
			if err := parseOptions(arg.Value, &opts); err != nil {
				return nil, err
			}
			rest = rest[1:]
		case *tengo.Undefined:
			rest = rest[1:]
		default:
			if !arg.CanCall() || len(rest) > 1 {
				return nil, tengo.ErrInvalidArgumentType{Name: "second", Expected: "string/map", Found: arg.TypeName()}
			}
		}
	}
	if len(rest) > 0 {
		switch fn := rest[0]; {
		case fn == tengo.UndefinedValue:
		case fn.CanCall():
			cb = &callback{host: h, fn: fn}
		default:
			return nil, tengo.ErrInvalidArgumentType{Name: "callback", Expected: "callable", Found: fn.TypeName()}
		}
	}

	req, err := h.m.Fetch(rawURL.Value, opts, cb)
	if err != nil {
		return &tengo.Error{Value: &tengo.String{Value: err.Error()}}, nil
	}
	return &Request{req: req}, nil
}

func parseOptions(values map[string]tengo.Object, opts *fetch.Options) error {
	if v, ok := values["post"]; ok && v != tengo.UndefinedValue {
		s, isStr := v.(*tengo.String)
		if !isStr {
			return tengo.ErrInvalidArgumentType{Name: "post", Expected: "string", Found: v.TypeName()}
		}
		post := s.Value
		opts.Post = &post
	}
	if v, ok := values["timeout"]; ok && v != tengo.UndefinedValue {
		switch n := v.(type) {
		case *tengo.Int:
			opts.Timeout = time.Duration(n.Value) * time.Second
		case *tengo.Float:
			opts.Timeout = time.Duration(n.Value * float64(time.Second))
		default:
			return tengo.ErrInvalidArgumentType{Name: "timeout", Expected: "int/float", Found: v.TypeName()}
		}
	}
	if v, ok := values["head"]; ok && v != tengo.UndefinedValue {
		b, isBool := v.(*tengo.Bool)
		if !isBool {
			return tengo.ErrInvalidArgumentType{Name: "head", Expected: "bool", Found: v.TypeName()}
		}
		opts.Head = !b.IsFalsy()
	}
	if v, ok := values["failOnError"]; ok && v != tengo.UndefinedValue {
		b, isBool := v.(*tengo.Bool)
		if !isBool {
			return tengo.ErrInvalidArgumentType{Name: "failOnError", Expected: "bool", Found: v.TypeName()}
		}
		opts.FailOnError = !b.IsFalsy()
	}
	return nil
}

// active() returns the live requests ordered by handle.
func (h *Host) active(args ...tengo.Object) (tengo.Object, error) {
	if len(args) != 0 {
		return nil, tengo.ErrWrongNumArguments
	}
	reqs := h.m.Requests()
	out := make([]tengo.Object, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, &Request{req: r})
	}
	return &tengo.Array{Value: out}, nil
}

// lookup(handle) returns the live request with that handle or undefined.
func (h *Host) lookup(args ...tengo.Object) (tengo.Object, error) {
	if len(args) != 1 {
		return nil, tengo.ErrWrongNumArguments
	}
	n, ok := args[0].(*tengo.Int)
	if !ok {
		return nil, tengo.ErrInvalidArgumentType{Name: "handle", Expected: "int", Found: args[0].TypeName()}
	}
	if n.Value <= 0 {
		return tengo.UndefinedValue, nil
	}
	req, ok := h.m.Lookup(fetch.Handle(n.Value))
	if !ok {
		return tengo.UndefinedValue, nil
	}
	return &Request{req: req}, nil
}
