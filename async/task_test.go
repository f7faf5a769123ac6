package async

import (
	"errors"
	"testing"

	"github.com/quilllang/quill/runtime"
	"github.com/quilllang/quill/types"
)

func TestBlockingTaskRun(t *testing.T) {
	task := NewBlocking("main.ql", 10, types.Int(21), func(data types.Value) (types.Value, error) {
		n := data.(types.Int)
		return types.Int(n * 2), nil
	}, runtime.Snapshot{})

	var gotVal types.Value
	var gotErr error
	task.Resume = func(v types.Value, err error) { gotVal, gotErr = v, err }

	task.Run()

	if gotErr != nil {
		t.Fatalf("unexpected error: %v", gotErr)
	}
	if !gotVal.Equal(types.Int(42)) {
		t.Errorf("resume value = %v, want 42", gotVal)
	}
}

func TestBlockingTaskRunPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	task := NewBlocking("main.ql", 1, types.NullValue, func(types.Value) (types.Value, error) {
		return nil, wantErr
	}, runtime.Snapshot{})

	var gotErr error
	task.Resume = func(_ types.Value, err error) { gotErr = err }
	task.Run()

	if gotErr != wantErr {
		t.Errorf("resume error = %v, want %v", gotErr, wantErr)
	}
}

func TestTaskSourceAccessors(t *testing.T) {
	task := NewCheckpoint("main.ql", 99, runtime.Snapshot{})
	if task.SourceID() != "main.ql" || task.SourceOffset() != 99 {
		t.Errorf("SourceID/SourceOffset = %q/%d, want main.ql/99", task.SourceID(), task.SourceOffset())
	}
}
