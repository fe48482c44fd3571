//go:build !windows

package subprocset

import (
	"testing"
	"time"

	"github.com/camh-/buildcore/subproc"
)

func TestAddRunsToCompletion(t *testing.T) {
	set, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer set.Close()

	sp := set.Add([]string{"/bin/echo", "-n", "hi"}, false)

	var finished *subproc.Subprocess
	for finished == nil {
		select {
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for subprocess to finish")
		default:
		}
		set.DoWork()
		finished = set.NextFinished()
	}
	if finished != sp {
		t.Fatalf("NextFinished returned a different subprocess than Add")
	}
	result, err := finished.Finish()
	if result != subproc.Success {
		t.Fatalf("Finish() = %v, %v, want Success", result, err)
	}
	if got := string(finished.Stdout()); got != "hi" {
		t.Fatalf("Stdout() = %q, want %q", got, "hi")
	}
}

func TestSecondSetRejected(t *testing.T) {
	set, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer set.Close()

	if _, err := New(); err != ErrAlreadyActive {
		t.Fatalf("second New() = %v, want ErrAlreadyActive", err)
	}
}

func TestAddStartFailureGoesStraightToFinished(t *testing.T) {
	set, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer set.Close()

	set.Add([]string{"/no/such/program"}, false)
	set.DoWork()
	finished := set.NextFinished()
	if finished == nil {
		t.Fatal("expected a finished subprocess for a not-found program")
	}
	if !finished.Done() {
		t.Fatal("expected the not-found subprocess to be Done")
	}
}
