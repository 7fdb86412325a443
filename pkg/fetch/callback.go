package fetch

// FailureMarker is passed to callbacks of failed requests.
const FailureMarker = "failed"

// Outcome is what a callback learns about a finished request.
type Outcome struct {
	// Body is set only when OK is true.
	Body []byte
	OK   bool
	// Err is FailureMarker when OK is false.
	Err  string
	Code int
}

// Callback is invoked once when a request completes through the transport.
type Callback interface {
	Invoke(req *Request, out Outcome) error
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(req *Request, out Outcome) error

// Invoke implements Callback.
func (f CallbackFunc) Invoke(req *Request, out Outcome) error {
	return f(req, out)
}
