package authorize

import "context"

// Executor runs a posted function, typically on a worker pool distinct
// from the realm strand that called Authorize. Grounded on the teacher's
// internal/webhook.Dispatcher worker-pool pattern.
type Executor interface {
	Post(func())
}

// Posting wraps another Authorizer and runs its decision on a bound
// Executor, so a slow or blocking authorize implementation (a remote
// lookup, a database query) never stalls the realm strand.
type Posting struct {
	Inner Authorizer
	Exec  Executor
}

func (p *Posting) Authorize(ctx context.Context, req Request) (Authorization, error) {
	type outcome struct {
		a   Authorization
		err error
	}
	ch := make(chan outcome, 1)
	p.Exec.Post(func() {
		a, err := p.Inner.Authorize(ctx, req)
		ch <- outcome{a, err}
	})
	select {
	case o := <-ch:
		return o.a, o.err
	case <-ctx.Done():
		return Authorization{}, ctx.Err()
	}
}
