package script

import (
	"github.com/d5/tengo/v2"

	"github.com/glorpus-work/fetchurl/pkg/fetch"
)

// RequestTypeName is the tengo type name of request objects.
const RequestTypeName = "fetch-request"

// Request exposes a *fetch.Request to scripts. Its methods mirror the
// request functions of the url module.
type Request struct {
	tengo.ObjectImpl
	req *fetch.Request
}

// Value returns the wrapped request.
func (o *Request) Value() *fetch.Request {
	return o.req
}

// TypeName implements tengo.Object.
func (o *Request) TypeName() string {
	return RequestTypeName
}

// String implements tengo.Object.
func (o *Request) String() string {
	return o.req.String()
}

// Equals reports whether both objects wrap the same request.
func (o *Request) Equals(x tengo.Object) bool {
	other, ok := x.(*Request)
	return ok && other.req == o.req
}

// Copy implements tengo.Object. Copies share the request.
func (o *Request) Copy() tengo.Object {
	return &Request{req: o.req}
}

// IsFalsy implements tengo.Object.
func (o *Request) IsFalsy() bool {
	return false
}

// IndexGet returns the bound method named by index.
func (o *Request) IndexGet(index tengo.Object) (tengo.Object, error) {
	name, ok := index.(*tengo.String)
	if !ok {
		return nil, tengo.ErrInvalidIndexType
	}
	method, ok := requestFuncs[name.Value]
	if !ok {
		return tengo.UndefinedValue, nil
	}
	return &tengo.UserFunction{
		Name: name.Value,
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			return method(append([]tengo.Object{o}, args...)...)
		},
	}, nil
}
