package docdiff

import (
	"github.com/codalotl/blockdiff/internal/document"
)

// AsyncResult is delivered by ComputeAsync.
type AsyncResult struct {
	Diff DocumentDiff
	Err  error
}

// ComputeAsync runs ComputeDocumentDiff on its own goroutine and delivers exactly one result on the returned channel, which is then closed. The channel is buffered,
// so abandoning it does not leak the goroutine.
//
// The documents must not be modified until the result arrives. Documents produced by the copy-on-write edit methods of package document are never modified, so
// they are always safe to pass.
func ComputeAsync(oldDoc, newDoc document.Document, fromID, toID string, opts *Options) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		d, err := ComputeDocumentDiff(oldDoc, newDoc, fromID, toID, opts)
		ch <- AsyncResult{Diff: d, Err: err}
	}()
	return ch
}
