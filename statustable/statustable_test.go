package statustable

import (
	"fmt"
	"testing"
)

type fakeTerminal struct {
	calls []string
}

func (f *fakeTerminal) PrintOnNextLine(line string)    { f.calls = append(f.calls, fmt.Sprintf("print(%q)", line)) }
func (f *fakeTerminal) ClearNextLine()                 { f.calls = append(f.calls, "clear()") }
func (f *fakeTerminal) MoveUp(n int)                   { f.calls = append(f.calls, fmt.Sprintf("moveup(%d)", n)) }
func (f *fakeTerminal) PrintOnCurrentLine(status string) {
	f.calls = append(f.calls, fmt.Sprintf("status(%q)", status))
}
func (f *fakeTerminal) Flush() { f.calls = append(f.calls, "flush()") }

func TestUpdateTableRendersOldestFirst(t *testing.T) {
	term := &fakeTerminal{}
	tbl := New(term, 2, 100)

	tbl.CommandStarted(1, 0, "command_1")
	tbl.CommandStarted(2, 250, "command_2")
	tbl.CommandStarted(3, 570, "command_3")

	tbl.UpdateTable(570, "some_status")

	want := []string{
		`print("  0.5s | command_1")`,
		`print("  0.3s | command_2")`,
		"moveup(2)",
		`status("some_status")`,
		"flush()",
	}
	if len(term.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", term.calls, want)
	}
	for i := range want {
		if term.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, term.calls[i], want[i])
		}
	}
}

func TestUpdateTableRespectsRefreshTimeout(t *testing.T) {
	term := &fakeTerminal{}
	tbl := New(term, 1, 100)
	tbl.CommandStarted(1, 0, "command_1")

	tbl.UpdateTable(10, "s")
	n := len(term.calls)
	tbl.UpdateTable(50, "s") // within refresh window, should no-op
	if len(term.calls) != n {
		t.Fatalf("expected no new calls inside refresh window, got %v", term.calls[n:])
	}
	tbl.UpdateTable(200, "s")
	if len(term.calls) == n {
		t.Fatalf("expected new calls once refresh window passed")
	}
}

func TestUpdateTableMovesUpPastClearedLeftoverLines(t *testing.T) {
	term := &fakeTerminal{}
	tbl := New(term, 2, 0)
	tbl.CommandStarted(1, 0, "a")
	tbl.CommandStarted(2, 0, "b")
	tbl.UpdateTable(0, "s") // two rows shown

	tbl.CommandEnded(1)
	tbl.CommandEnded(2) // running set empties out
	term.calls = nil
	tbl.UpdateTable(0, "s")

	// Nothing left to print, but the two previously-shown rows must both
	// be cleared and the cursor must move up past both of them, not just
	// past the (zero) rows printed this time.
	want := []string{"clear()", "clear()", "moveup(2)", `status("s")`, "flush()"}
	if len(term.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", term.calls, want)
	}
	for i := range want {
		if term.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, term.calls[i], want[i])
		}
	}
}

func TestUpdateTableZeroMaxDisabled(t *testing.T) {
	term := &fakeTerminal{}
	tbl := New(term, 0, 0)
	tbl.CommandStarted(1, 0, "c")
	tbl.UpdateTable(1000, "s")
	if len(term.calls) != 0 {
		t.Fatalf("expected no rendering when maxCommands=0, got %v", term.calls)
	}
}

func TestStableOrderingOnTiedStartTime(t *testing.T) {
	term := &fakeTerminal{}
	tbl := New(term, 1, 0)
	tbl.CommandStarted(1, 100, "first")
	tbl.CommandStarted(2, 100, "second")
	tbl.UpdateTable(100, "s")
	if len(term.calls) < 1 || term.calls[0] != `print("  0.0s | first")` {
		t.Fatalf("expected the first-inserted command to win the tie, got %v", term.calls)
	}
}

func TestClearTable(t *testing.T) {
	term := &fakeTerminal{}
	tbl := New(term, 2, 0)
	tbl.CommandStarted(1, 0, "a")
	tbl.UpdateTable(0, "s")
	term.calls = nil
	tbl.ClearTable()
	want := []string{"clear()", "moveup(1)"}
	if len(term.calls) != len(want) || term.calls[0] != want[0] || term.calls[1] != want[1] {
		t.Fatalf("ClearTable calls = %v, want %v", term.calls, want)
	}
}

func TestDoubleEndedPanics(t *testing.T) {
	term := &fakeTerminal{}
	tbl := New(term, 1, 0)
	tbl.CommandStarted(1, 0, "a")
	tbl.CommandEnded(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double CommandEnded")
		}
	}()
	tbl.CommandEnded(1)
}
