package repokit

import (
	"context"
	"errors"
	"testing"
)

type recTx struct {
	fakeQ
	calls []string
}

func (r *recTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	r.calls = append(r.calls, "begin")
	return fn(r)
}

func TestWithBeginHooks_RunsHooksBeforeFn(t *testing.T) {
	inner := &recTx{}
	tx := WithBeginHooks(inner,
		func(context.Context, Queryer) error { inner.calls = append(inner.calls, "hook1"); return nil },
		func(context.Context, Queryer) error { inner.calls = append(inner.calls, "hook2"); return nil },
	)
	err := WithTx(context.Background(), tx, func(Queryer) error {
		inner.calls = append(inner.calls, "fn")
		return nil
	})
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	want := []string{"begin", "hook1", "hook2", "fn"}
	if len(inner.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", inner.calls, want)
	}
	for i := range want {
		if inner.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", inner.calls, want)
		}
	}
}

func TestWithBeginHooks_HookErrorSkipsFn(t *testing.T) {
	inner := &recTx{}
	boom := errors.New("boom")
	tx := WithBeginHooks(inner, func(context.Context, Queryer) error { return boom })
	ran := false
	err := tx.Tx(context.Background(), func(Queryer) error { ran = true; return nil })
	if !errors.Is(err, boom) || ran {
		t.Fatalf("err=%v ran=%v", err, ran)
	}
}
