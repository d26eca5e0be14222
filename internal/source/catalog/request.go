package catalog

import (
	"context"
)

// Request is one asynchronous catalog GET. Result and Err are only meaningful
// once Busy returns false.
type Request struct {
	url    string
	cancel context.CancelFunc
	done   chan struct{}

	// written before done is closed
	doc *Document
	err error
}

func (r *Request) run(ctx context.Context, c *Client) {
	defer close(r.done)
	defer r.cancel()

	body, err := c.fetch(ctx, r.url)
	if err != nil {
		r.err = err
		return
	}

	doc, err := ParseDocument(body)
	if err != nil {
		r.err = err
		return
	}
	r.doc = doc
}

// URL returns the requested URL
func (r *Request) URL() string {
	return r.url
}

// Done is closed when the request finished
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Busy returns true while the request is in flight
func (r *Request) Busy() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Success returns true if the request finished with a parsed document
func (r *Request) Success() bool {
	return !r.Busy() && r.err == nil
}

// Err returns the failure of a finished request
func (r *Request) Err() error {
	if r.Busy() {
		return nil
	}
	return r.err
}

// Result returns the parsed document of a successful request
func (r *Request) Result() *Document {
	if r.Busy() {
		return nil
	}
	return r.doc
}

// Wait blocks until the request finishes or ctx is done
func (r *Request) Wait(ctx context.Context) (*Document, error) {
	select {
	case <-r.done:
		return r.doc, r.err
	case <-ctx.Done():
		r.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel aborts the request and waits for its goroutine to exit
func (r *Request) Cancel() {
	r.cancel()
	<-r.done
}
