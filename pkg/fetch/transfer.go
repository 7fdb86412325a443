package fetch

import (
	"time"

	"github.com/glorpus-work/fetchurl/pkg/location"
	"github.com/glorpus-work/fetchurl/pkg/transport"
)

// transferHandle binds one request to its registration in the transport.
type transferHandle struct {
	tr       transport.Transport
	transfer *transport.Transfer
}

func newTransferHandle(tr transport.Transport, loc *location.Location, notify transport.NotifyFunc) *transferHandle {
	return &transferHandle{
		tr:       tr,
		transfer: transport.NewTransfer(loc, notify),
	}
}

func (h *transferHandle) configure(post *string, head, failOnError bool, timeout time.Duration) {
	h.transfer.Post = post
	h.transfer.Head = head
	h.transfer.FailOnError = failOnError
	h.transfer.Timeout = timeout
	h.transfer.RequestFileTime = true
}

func (h *transferHandle) register() error {
	return h.tr.Add(h.transfer)
}

// owns reports whether t is the transfer currently bound to this handle.
func (h *transferHandle) owns(t *transport.Transfer) bool {
	return h != nil && h.transfer != nil && h.transfer == t
}

func (h *transferHandle) received() int64 {
	if h == nil || h.transfer == nil {
		return 0
	}
	return h.transfer.Received()
}

// release unregisters the transfer. Calling it again is a no-op.
func (h *transferHandle) release() {
	if h == nil || h.transfer == nil {
		return
	}
	h.tr.Remove(h.transfer)
	h.transfer = nil
}
