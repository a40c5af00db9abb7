package batchcheck

import (
	"context"
	"errors"
	"testing"
)

func TestRunAllPreservesOrderAndIsolatesErrors(t *testing.T) {
	jobs := []Job[int]{
		{Name: "a", Run: func(ctx context.Context) (int, error) { return 1, nil }},
		{Name: "b", Run: func(ctx context.Context) (int, error) { return 0, errors.New("boom") }},
		{Name: "c", Run: func(ctx context.Context) (int, error) { return 3, nil }},
	}

	outcomes := RunAll(context.Background(), jobs, 2)
	if len(outcomes) != 3 {
		t.Fatalf("len(outcomes) = %d, want 3", len(outcomes))
	}
	if outcomes[0].Name != "a" || outcomes[0].Result != 1 || outcomes[0].Err != nil {
		t.Errorf("outcomes[0] = %+v", outcomes[0])
	}
	if outcomes[1].Name != "b" || outcomes[1].Err == nil {
		t.Errorf("outcomes[1] = %+v, want an error", outcomes[1])
	}
	if outcomes[2].Name != "c" || outcomes[2].Result != 3 || outcomes[2].Err != nil {
		t.Errorf("outcomes[2] = %+v", outcomes[2])
	}
}

func TestRunAllUnbounded(t *testing.T) {
	jobs := make([]Job[int], 10)
	for i := range jobs {
		i := i
		jobs[i] = Job[int]{Name: "job", Run: func(ctx context.Context) (int, error) { return i, nil }}
	}
	outcomes := RunAll(context.Background(), jobs, 0)
	for i, o := range outcomes {
		if o.Result != i {
			t.Errorf("outcomes[%d].Result = %d, want %d", i, o.Result, i)
		}
	}
}
