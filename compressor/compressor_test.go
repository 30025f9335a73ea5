package compressor

import (
	"reflect"
	"testing"
)

// lookupAction probes the packed action table the way a parser runtime
// does: the pair at base[state]+2*terminal answers only if this state owns
// the slot, otherwise the state's default applies.
func lookupAction(packed, base []int, state, terminal int) int {
	i := base[state] + 2*terminal
	if i+1 < len(packed) && packed[i] == state {
		return packed[i+1]
	}
	return packed[state]
}

func TestCompressActionTable(t *testing.T) {
	tests := []struct {
		caption string
		rows    [][]int
	}{
		{
			caption: "rows with defaults and scattered entries",
			rows: [][]int{
				// the trailing column is the row default
				{0, 3, 0, 5, 0, 0},
				{2, 0, 0, 0, 2, 2},
				{0, 0, 0, 0, 0, 0},
				{7, 3, 9, 0, 1, 0},
			},
		},
		{
			caption: "a table with only default rows",
			rows: [][]int{
				{4, 4, 4, 4, 4, 4},
				{0, 0, 0, 0, 0, 0},
			},
		},
		{
			caption: "dense rows force displacement",
			rows: [][]int{
				{1, 2, 3, 4, 5, 0},
				{5, 4, 3, 2, 1, 0},
				{1, 0, 1, 0, 1, 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			packed, base := CompressActionTable(tt.rows)

			stateCount := len(tt.rows)
			colCount := len(tt.rows[0]) - 1
			for s := 0; s < stateCount; s++ {
				if packed[s] != tt.rows[s][colCount] {
					t.Fatalf("packed[%v] must hold the row default", s)
				}
				for c := 0; c < colCount; c++ {
					got := lookupAction(packed, base, s, c)
					if got != tt.rows[s][c] {
						t.Fatalf("lookup(%v, %v): want: %v, got: %v", s, c, tt.rows[s][c], got)
					}
				}
			}
		})
	}
}

func TestCompressReduceTable(t *testing.T) {
	rows := [][]int{
		{EmptyEntry, 4, EmptyEntry},
		{EmptyEntry, EmptyEntry, EmptyEntry},
		{2, EmptyEntry, 6},
	}

	packed := CompressReduceTable(rows)

	for s, row := range rows {
		for n, want := range row {
			if want == EmptyEntry {
				continue
			}
			got := packed[packed[s]+n]
			if got != want {
				t.Fatalf("lookup(%v, %v): want: %v, got: %v", s, n, want, got)
			}
		}
	}

	// A state without gotos keeps the sentinel in its base slot.
	if packed[1] != 1 {
		t.Fatalf("an empty row's base slot must hold the sentinel; got %v", packed[1])
	}
}

func TestCompressReduceTableAllEmpty(t *testing.T) {
	rows := [][]int{
		{EmptyEntry, EmptyEntry},
		{EmptyEntry, EmptyEntry},
	}

	packed := CompressReduceTable(rows)
	if len(packed) != len(rows) {
		t.Fatalf("unexpected length: %v", len(packed))
	}
	for i, v := range packed {
		if v != 1 {
			t.Fatalf("slot %v must hold the sentinel; got %v", i, v)
		}
	}
}

func TestEncodeUint16RoundTrip(t *testing.T) {
	values := []int{0, 1, 0x7fff, 0x8000, 0xffff, 0x10000, 0x12345, 42}

	units := EncodeUint16(values)
	decoded := DecodeUint16(units)

	if !reflect.DeepEqual(values, decoded) {
		t.Fatalf("round trip mismatch: want: %v, got: %v", values, decoded)
	}

	// Small values stay single units; large ones split in two.
	if len(units) != len(values)+4 {
		t.Fatalf("unexpected unit count: %v", len(units))
	}
}

func TestCombRowsDoNotCollide(t *testing.T) {
	// Two rows with overlapping column sets must end up at different
	// bases; identical column sets may share nothing but still must
	// resolve to per-row values.
	rows := [][]int{
		{9, 9, 0, 0, 0},
		{8, 8, 0, 0, 0},
		{0, 7, 7, 0, 0},
	}

	packed, base := CompressActionTable(rows)
	for s := 0; s < len(rows); s++ {
		for c := 0; c < len(rows[0])-1; c++ {
			if got := lookupAction(packed, base, s, c); got != rows[s][c] {
				t.Fatalf("lookup(%v, %v): want: %v, got: %v", s, c, rows[s][c], got)
			}
		}
	}
}
