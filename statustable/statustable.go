// Package statustable renders the K oldest still-running commands to a
// terminal, refreshed no more often than a configured interval.
package statustable

import (
	"container/heap"
	"fmt"
	"sync"
)

// CommandID is an opaque identity for a running command. Callers
// typically derive it from a pointer they already own (e.g.
// CommandID(uintptr(unsafe.Pointer(cmd)))); the table never dereferences
// it, only compares it.
type CommandID uintptr

// Terminal is the rendering sink a Table drives. An implementation
// backed by a real terminal buffers writes and interprets the cursor
// movements in terms of ANSI escape sequences; a test implementation
// can simply record the calls.
type Terminal interface {
	// PrintOnNextLine moves the cursor down to the next line and writes
	// line there, leaving the cursor on that line.
	PrintOnNextLine(line string)
	// ClearNextLine moves the cursor down one line and erases that line,
	// used to blank out a row this Table no longer has content for.
	ClearNextLine()
	// MoveUp moves the cursor up n lines without erasing anything.
	MoveUp(n int)
	// PrintOnCurrentLine overwrites the line the cursor sits on, without
	// advancing.
	PrintOnCurrentLine(status string)
	// Flush makes prior calls visible.
	Flush()
}

type entry struct {
	id      CommandID
	startMS int64
	seq     uint64
	desc    string
}

// Table tracks the set of commands currently running and periodically
// renders the oldest few of them. It is safe for concurrent use.
type Table struct {
	mu               sync.Mutex
	term             Terminal
	maxCommands      int
	refreshTimeoutMS int64

	pending map[CommandID]*entry
	nextSeq uint64

	haveLastUpdate bool
	lastUpdateMS   int64
	linesShown     int
}

// New returns a Table that renders to term. maxCommands of 0 disables
// rendering entirely; refreshTimeoutMS is the minimum spacing between
// successive terminal updates.
func New(term Terminal, maxCommands int, refreshTimeoutMS int64) *Table {
	return &Table{
		term:             term,
		maxCommands:      maxCommands,
		refreshTimeoutMS: refreshTimeoutMS,
		pending:          make(map[CommandID]*entry),
	}
}

// CommandStarted records a newly running command. Calling it twice for
// the same id without an intervening CommandEnded is a defect.
func (t *Table) CommandStarted(id CommandID, startMS int64, desc string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[id]; ok {
		panic("statustable: command started twice")
	}
	t.pending[id] = &entry{id: id, startMS: startMS, seq: t.nextSeq, desc: desc}
	t.nextSeq++
}

// CommandEnded removes a command from the pending set. Calling it for an
// id that is not currently pending is a defect.
func (t *Table) CommandEnded(id CommandID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pending[id]; !ok {
		panic("statustable: command ended without a matching start")
	}
	delete(t.pending, id)
}

// worse reports whether a is a less deserving member of the "K oldest"
// selection than b: a later start time, or — on a tied start time — a
// higher insertion sequence (it arrived after b).
func worse(a, b *entry) bool {
	if a.startMS != b.startMS {
		return a.startMS > b.startMS
	}
	return a.seq > b.seq
}

type maxHeap []*entry

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return worse(h[i], h[j]) }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(*entry)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// selectOldest returns the maxCommands oldest pending entries, oldest
// first, using a bounded max-heap of size K: a candidate only displaces
// the current worst (heap-top) member once the heap is full.
func (t *Table) selectOldest() []*entry {
	k := t.maxCommands
	if k <= 0 || len(t.pending) == 0 {
		return nil
	}

	var h maxHeap
	for _, e := range t.pending {
		switch {
		case len(h) < k:
			heap.Push(&h, e)
		case worse(h[0], e):
			heap.Pop(&h)
			heap.Push(&h, e)
		}
	}

	out := make([]*entry, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(*entry)
	}
	return out
}

func formatElapsed(nowMS, startMS int64) string {
	if nowMS < startMS {
		return "??????"
	}
	elapsed := nowMS - startMS
	if elapsed < 60000 {
		seconds := elapsed / 1000
		tenths := (elapsed % 1000) / 100
		return fmt.Sprintf("%d.%ds", seconds, tenths)
	}
	totalSeconds := elapsed / 1000
	return fmt.Sprintf("%dm%ds", totalSeconds/60, totalSeconds%60)
}

// UpdateTable repaints the table if refreshTimeoutMS has elapsed since
// the last repaint (always on the first call), showing the
// maxCommands oldest pending commands alongside status on the
// in-progress status line.
func (t *Table) UpdateTable(nowMS int64, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxCommands == 0 {
		return
	}
	if t.haveLastUpdate && nowMS-t.lastUpdateMS < t.refreshTimeoutMS {
		return
	}
	t.lastUpdateMS = nowMS
	t.haveLastUpdate = true

	oldest := t.selectOldest()
	for _, e := range oldest {
		t.term.PrintOnNextLine(fmt.Sprintf("%6s | %s", formatElapsed(nowMS, e.startMS), e.desc))
	}
	for i := len(oldest); i < t.linesShown; i++ {
		t.term.ClearNextLine()
	}
	descended := len(oldest)
	if t.linesShown > descended {
		descended = t.linesShown
	}
	t.term.MoveUp(descended)
	t.term.PrintOnCurrentLine(status)
	t.term.Flush()
	t.linesShown = len(oldest)
}

// ClearTable erases every line this Table has printed and returns the
// cursor to where UpdateTable found it, without repainting a status
// line.
func (t *Table) ClearTable() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < t.linesShown; i++ {
		t.term.ClearNextLine()
	}
	t.term.MoveUp(t.linesShown)
	t.linesShown = 0
}
