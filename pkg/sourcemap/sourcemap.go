// Package sourcemap tracks which line of a rewritten document came from which
// line of the original one.
//
// Edits are recorded as patches against the line numbers as they exist at the
// time of the patch. The map itself is only computed when asked for, by
// replaying the patch log over the identity mapping.
package sourcemap

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"
)

// Deleted marks a line that no longer has a counterpart in the output.
const Deleted = -1

// Point is an inclusive range of 1-based line numbers.
type Point struct {
	Start int
	End   int
}

// Offset shifts every line at or after From by Delta.
type Offset struct {
	From  int
	Delta int
}

// Replace describes Source text starting at line At being replaced by Result.
type Replace struct {
	At     int
	Source string
	Result string
}

// Tx is a single patch. All of its operations observe the same line
// coordinates.
type Tx struct {
	Delete  []Point
	Offset  []Offset
	Replace []Replace
}

func (tx Tx) shift(lines int) Tx {
	out := Tx{
		Delete:  make([]Point, len(tx.Delete)),
		Offset:  make([]Offset, len(tx.Offset)),
		Replace: make([]Replace, len(tx.Replace)),
	}
	for i, d := range tx.Delete {
		out.Delete[i] = Point{Start: d.Start + lines, End: d.End + lines}
	}
	for i, o := range tx.Offset {
		out.Offset[i] = Offset{From: o.From + lines, Delta: o.Delta}
	}
	for i, r := range tx.Replace {
		r.At += lines
		out.Replace[i] = r
	}
	return out
}

// Patcher receives patches. *SourceMap and the views returned by Shift
// implement it.
type Patcher interface {
	Patch(tx Tx)
}

// SourceMap maps lines of the current text back to the original text.
// Patches must be submitted by one writer at a time; the mutex only guards
// against accidental concurrent use.
type SourceMap struct {
	mu sync.Mutex

	log []Tx

	// state[i] is the current line of original line i+1 after the first
	// applied patches of the log have been replayed.
	state   []int
	applied int
}

// New creates an identity map for content.
func New(content string) *SourceMap {
	n := len(Lines(content)) - 1
	state := make([]int, n)
	for i := range state {
		state[i] = i + 1
	}
	return &SourceMap{state: state}
}

// Patch records tx. The replay cache is invalidated; the patch is applied
// the next time the map is read.
func (m *SourceMap) Patch(tx Tx) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, tx)
}

// Shift returns a Patcher that records patches relative to a region of the
// text starting after the first lines lines.
func (m *SourceMap) Shift(lines int) Patcher {
	if lines == 0 {
		return m
	}
	return shifted{m: m, lines: lines}
}

type shifted struct {
	m     *SourceMap
	lines int
}

func (s shifted) Patch(tx Tx) { s.m.Patch(tx.shift(s.lines)) }

// replay folds pending patches into the cached state. Caller holds m.mu.
func (m *SourceMap) replay() []int {
	for ; m.applied < len(m.log); m.applied++ {
		apply(m.state, m.log[m.applied])
	}
	return m.state
}

type actor func(line int) int

func apply(state []int, tx Tx) {
	offset := 0

	var dels, offs []actor
	deleter := func(p Point) actor {
		return func(line int) int {
			if p.Start <= line && line <= p.End {
				offset--
				return Deleted
			}
			return line
		}
	}
	shifter := func(o Offset) actor {
		return func(line int) int {
			if line >= o.From {
				return line + o.Delta
			}
			return line
		}
	}

	for _, p := range tx.Delete {
		dels = append(dels, deleter(p))
	}
	for _, o := range tx.Offset {
		offs = append(offs, shifter(o))
	}
	for _, r := range tx.Replace {
		sl := LineCount(r.Source)
		rl := LineCount(r.Result)
		dels = append(dels, deleter(Point{Start: r.At + 1, End: r.At + sl}))
		offs = append(offs, shifter(Offset{From: r.At + 1, Delta: sl - 1 + (rl - sl)}))
	}

	actors := append(dels, offs...)
	for i, line := range state {
		if line == Deleted {
			continue
		}
		for _, act := range actors {
			line = act(line)
			if line == Deleted {
				break
			}
		}
		if line == Deleted {
			state[i] = Deleted
			continue
		}
		state[i] = line + offset
	}
}

// Dump returns the mapping from current line to original line. Lines that
// have no origin are omitted.
func (m *SourceMap) Dump() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string)
	for i, line := range m.replay() {
		if line > 0 {
			out[strconv.Itoa(line)] = strconv.Itoa(i + 1)
		}
	}
	return out
}

// Origin returns the original line of the current line.
func (m *SourceMap) Origin(line int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	origin := 0
	for i, cur := range m.replay() {
		if cur == line {
			origin = i + 1
		}
	}
	return origin, origin > 0
}

// MarshalJSON encodes the dump.
func (m *SourceMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Dump())
}

// Lines returns the offset of the first character of every line of content
// followed by a sentinel one past the end.
func Lines(content string) []int {
	lines := make([]int, 0, strings.Count(content, "\n")+2)
	lines = append(lines, 0)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return append(lines, len(content)+1)
}

// Locate converts the character offsets from and to into 1-based line
// numbers using the table produced by Lines. A bound that falls outside the
// table is reported as -1.
func Locate(from, to int, lines []int) Point {
	p := Point{Start: -1, End: -1}
	i := 0
	for ; i < len(lines); i++ {
		if from < lines[i] {
			p.Start = i
			break
		}
	}
	for ; i < len(lines); i++ {
		if to < lines[i] {
			p.End = i
			break
		}
	}
	return p
}

// LineCount is the number of lines content spans.
func LineCount(content string) int {
	return strings.Count(content, "\n") + 1
}
