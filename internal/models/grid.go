package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

const (
	GridSize = 25
	MinMines = 1
	MaxMines = GridSize - 1
)

type Cell struct {
	Index    int  `json:"index"`
	IsMine   bool `json:"isMine"`
	Revealed bool `json:"revealed"`
}

// Grid is the fixed 5x5 Mines board. Cell i always has Index i.
type Grid [GridSize]Cell

// NewGrid builds a board with mines at the given distinct positions.
func NewGrid(mines []int) (Grid, error) {
	var g Grid
	for i := range g {
		g[i].Index = i
	}
	for _, pos := range mines {
		if pos < 0 || pos >= GridSize {
			return Grid{}, fmt.Errorf("%w: mine position %d out of range", ErrInvalidInput, pos)
		}
		if g[pos].IsMine {
			return Grid{}, fmt.Errorf("%w: duplicate mine position %d", ErrInvalidInput, pos)
		}
		g[pos].IsMine = true
	}
	return g, nil
}

func (g Grid) MineCount() int {
	n := 0
	for _, c := range g {
		if c.IsMine {
			n++
		}
	}
	return n
}

// MinePositions returns mine indices in ascending order.
func (g Grid) MinePositions() []int {
	out := make([]int, 0, MaxMines)
	for _, c := range g {
		if c.IsMine {
			out = append(out, c.Index)
		}
	}
	return out
}

func (g Grid) Validate() error {
	for i, c := range g {
		if c.Index != i {
			return fmt.Errorf("cell %d carries index %d", i, c.Index)
		}
	}
	if n := g.MineCount(); n < MinMines || n > MaxMines {
		return fmt.Errorf("grid has %d mines", n)
	}
	return nil
}

func (g Grid) GormDataType() string {
	return "text"
}

func (g Grid) Value() (driver.Value, error) {
	data, err := json.Marshal([GridSize]Cell(g))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (g *Grid) Scan(src interface{}) error {
	data, err := textBytes(src)
	if err != nil {
		return fmt.Errorf("grid: %w", err)
	}

	var cells []Cell
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if len(cells) != GridSize {
		return fmt.Errorf("grid: expected %d cells, got %d", GridSize, len(cells))
	}

	var next Grid
	copy(next[:], cells)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	*g = next
	return nil
}

// IndexList is an ordered list of revealed tile indices.
type IndexList []int

func (l IndexList) Contains(idx int) bool {
	for _, v := range l {
		if v == idx {
			return true
		}
	}
	return false
}

func (l IndexList) GormDataType() string {
	return "text"
}

func (l IndexList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]int(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *IndexList) Scan(src interface{}) error {
	data, err := textBytes(src)
	if err != nil {
		return fmt.Errorf("revealed indices: %w", err)
	}

	var out []int
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("revealed indices: %w", err)
	}

	seen := make(map[int]bool, len(out))
	for _, idx := range out {
		if idx < 0 || idx >= GridSize || seen[idx] {
			return fmt.Errorf("revealed indices: bad index %d", idx)
		}
		seen[idx] = true
	}
	*l = out
	return nil
}

func textBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case nil:
		return nil, fmt.Errorf("unexpected NULL")
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}
