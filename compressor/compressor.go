// Package compressor packs the sparse action and reduce-goto tables of a
// generated parser into flat integer sequences using row displacement: each
// row's non-default cells land at base[row]+column inside one shared comb,
// with bases chosen so that no two rows claim the same slot.
package compressor

import "sort"

// EmptyEntry marks an unoccupied cell of an uncompressed reduce-goto row.
const EmptyEntry = -1

type bitSet struct {
	words []uint64
}

func (s *bitSet) get(i int) bool {
	w := i >> 6
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<(uint(i)&63)) != 0
}

func (s *bitSet) set(i int) {
	w := i >> 6
	for w >= len(s.words) {
		s.words = append(s.words, 0)
	}
	s.words[w] |= 1 << (uint(i) & 63)
}

func (s *bitSet) maxSet() int {
	for w := len(s.words) - 1; w >= 0; w-- {
		if s.words[w] == 0 {
			continue
		}
		for b := 63; b >= 0; b-- {
			if s.words[w]&(1<<uint(b)) != 0 {
				return w<<6 + b
			}
		}
	}
	return -1
}

type combRow struct {
	index int
	cols  []int
	base  int
}

// fitInComb finds the smallest base such that every column of the row lands
// in an unclaimed slot, then claims those slots.
func (r *combRow) fitInComb(used *bitSet) {
	base := 0
FIT:
	for {
		for _, col := range r.cols {
			if used.get(base + col) {
				base++
				continue FIT
			}
		}
		break
	}
	r.base = base
	for _, col := range r.cols {
		used.set(base + col)
	}
}

// collectRows gathers the rows having at least one cell different from that
// row's default, sorted densest first; denser rows are harder to place, so
// fitting them early packs the comb tighter.
func collectRows(rows [][]int, defaults []int, colCount int) []*combRow {
	var combRows []*combRow
	for i, row := range rows {
		var cols []int
		for j := 0; j < colCount; j++ {
			if row[j] != defaults[i] {
				cols = append(cols, j)
			}
		}
		if len(cols) == 0 {
			continue
		}
		combRows = append(combRows, &combRow{
			index: i,
			cols:  cols,
		})
	}

	sort.Slice(combRows, func(i, j int) bool {
		if len(combRows[i].cols) != len(combRows[j].cols) {
			return len(combRows[i].cols) > len(combRows[j].cols)
		}
		return combRows[i].index < combRows[j].index
	})

	return combRows
}

// CompressActionTable packs an action table whose rows carry their default
// action in a trailing extra column. The packed sequence has length
// stateCount + 2*combSize: the first stateCount slots hold each state's
// default action, the rest holds (owner, value) pairs. The returned base
// slice addresses into the packed sequence so that for every non-default
// cell
//
//	packed[base[state] + 2*terminal]   == state
//	packed[base[state] + 2*terminal+1] == cell value
//
// and a pair whose owner is not the probing state falls back to
// packed[state], the default.
func CompressActionTable(rows [][]int) ([]int, []int) {
	stateCount := len(rows)
	colCount := 0
	if stateCount > 0 {
		colCount = len(rows[0]) - 1
	}

	defaults := make([]int, stateCount)
	for i, row := range rows {
		defaults[i] = row[colCount]
	}

	combRows := collectRows(rows, defaults, colCount)

	used := &bitSet{}
	combSize := 0
	for _, row := range combRows {
		row.fitInComb(used)
		if last := row.base + colCount + 1; last > combSize {
			combSize = last
		}
	}

	packed := make([]int, stateCount+2*combSize)
	base := make([]int, stateCount)
	for i := 0; i < stateCount; i++ {
		base[i] = stateCount
		packed[i] = defaults[i]
	}
	for i := 0; i < combSize; i++ {
		packed[stateCount+2*i] = stateCount
		packed[stateCount+2*i+1] = 1
	}
	for _, row := range combRows {
		b := stateCount + 2*row.base
		base[row.index] = b
		for _, col := range row.cols {
			packed[b+2*col] = row.index
			packed[b+2*col+1] = rows[row.index][col]
		}
	}

	return packed, base
}

// CompressReduceTable packs a reduce-goto table whose empty cells carry
// EmptyEntry. The packed sequence serves double duty: packed[state] is the
// state's base, and packed[base + nonterminal] the destination state, so
// the row-index slots are claimed up front to keep bases off them.
// Unoccupied slots hold the sentinel 1.
func CompressReduceTable(rows [][]int) []int {
	stateCount := len(rows)
	colCount := 0
	if stateCount > 0 {
		colCount = len(rows[0])
	}

	used := &bitSet{}
	var combRows []*combRow
	for i, row := range rows {
		used.set(i)
		var cols []int
		for j := 0; j < colCount; j++ {
			if row[j] != EmptyEntry {
				cols = append(cols, j)
			}
		}
		if len(cols) == 0 {
			continue
		}
		combRows = append(combRows, &combRow{
			index: i,
			cols:  cols,
		})
	}

	sort.Slice(combRows, func(i, j int) bool {
		if len(combRows[i].cols) != len(combRows[j].cols) {
			return len(combRows[i].cols) > len(combRows[j].cols)
		}
		return combRows[i].index < combRows[j].index
	})

	for _, row := range combRows {
		row.fitInComb(used)
	}

	size := used.maxSet() + 1
	if size < stateCount {
		size = stateCount
	}

	packed := make([]int, size)
	for i := range packed {
		packed[i] = 1
	}
	for _, row := range combRows {
		packed[row.index] = row.base
		for _, col := range row.cols {
			packed[row.base+col] = rows[row.index][col]
		}
	}

	return packed
}

// EncodeUint16 flattens non-negative values into 16-bit units. A value that
// does not fit in 15 bits takes two units, the first carrying the upper
// bits with the high bit set.
func EncodeUint16(values []int) []uint16 {
	var units []uint16
	for _, v := range values {
		if v >= 0x8000 {
			units = append(units, uint16(0x8000|(v>>16)))
		}
		units = append(units, uint16(v&0xffff))
	}
	return units
}

// DecodeUint16 is the inverse of EncodeUint16.
func DecodeUint16(units []uint16) []int {
	var values []int
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u&0x8000 != 0 {
			i++
			values = append(values, int(u&0x7fff)<<16|int(units[i]))
		} else {
			values = append(values, int(u))
		}
	}
	return values
}
