package background

import "context"

// NewMapTask starts a task that applies fn to every item in order and
// yields one result per item. fn receives the task context so long
// per-item work can stop early on Cancel.
func NewMapTask[In, Out any](name string, items []In, fn func(context.Context, In) Out) *Task[Out] {
	return Go(name, func(ctx context.Context, yield func(Out) bool) error {
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !yield(fn(ctx, item)) {
				return nil
			}
		}
		return nil
	})
}
