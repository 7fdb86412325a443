package fetch

import (
	"fmt"

	"github.com/glorpus-work/fetchurl/internal/logger"
	"github.com/glorpus-work/fetchurl/pkg/errors"
)

// dispatch finishes the request a completion belongs to. It is the only
// place where callbacks are invoked.
func (m *Manager) dispatch(c completion) {
	req, ok := m.registry.Validate(c.handle)
	if !ok || !req.active || !req.xfer.owns(c.transfer) {
		logger.Debug("Dropping stale completion", logger.Fields{"handle": uint64(c.handle)})
		return
	}

	req.active = false
	req.xfer.release()
	m.registry.deregister(req.handle)

	res := c.result
	req.success = res.Good && res.Data != nil
	req.length = res.Length
	req.fileTime = res.Meta.FileTime
	req.fileSize = res.Meta.FileSize
	req.code = res.Meta.Code

	fields := logger.Fields{"handle": uint64(req.handle), "url": req.url, "code": req.code, "success": req.success}
	if res.Err != nil {
		fields["error"] = res.Err.Error()
	}
	logger.Debug("Fetch completed", fields)

	if req.cbRef == NoRef || req.selfRef == NoRef {
		req.releasePins()
		return
	}

	cb, ok := m.resolveCallback(req)
	if !ok {
		logger.Warn("Fetch completion could not resolve its pinned references", logger.Fields{"handle": uint64(req.handle)})
		req.releasePins()
		return
	}

	req.releasePins()

	out := Outcome{OK: req.success, Code: req.code}
	if req.success {
		out.Body = res.Data
	} else {
		out.Err = FailureMarker
	}

	if err := invokeCallback(cb, req, out); err != nil {
		logger.Error("Fetch callback failed", logger.Fields{"handle": uint64(req.handle), "url": req.url, "error": err.Error()})
	}
}

// invokeCallback runs cb and turns a panic into an ErrCallbackFailed error.
func invokeCallback(cb Callback, req *Request, out Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", errors.ErrCallbackFailed, r)
		}
	}()
	return cb.Invoke(req, out)
}

// resolveCallback returns the pinned callback after checking that the self
// pin still refers to req.
func (m *Manager) resolveCallback(req *Request) (Callback, bool) {
	selfVal, ok := m.refs.Get(req.selfRef)
	if !ok {
		return nil, false
	}
	if self, isReq := selfVal.(*Request); !isReq || self != req {
		return nil, false
	}
	cbVal, ok := m.refs.Get(req.cbRef)
	if !ok {
		return nil, false
	}
	cb, ok := cbVal.(Callback)
	return cb, ok
}
