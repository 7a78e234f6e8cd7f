package game

// Mark is the symbol a participant plays with. The zero value is an empty cell.
type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

// Board is a 3x3 grid in row-major order.
type Board [9]Mark

// Outcome of evaluating a board position.
type Outcome int

const (
	Continue Outcome = iota
	Win
	Draw
)

type Result struct {
	Outcome Outcome
	Winner  Mark
}

var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// Evaluate checks the board for a completed line, then for a draw.
// A full board with a completed line is a win, not a draw.
func Evaluate(b Board) Result {
	for _, line := range winningLines {
		a, m, c := b[line[0]], b[line[1]], b[line[2]]
		if a != Empty && a == m && a == c {
			return Result{Outcome: Win, Winner: a}
		}
	}
	for _, cell := range b {
		if cell == Empty {
			return Result{Outcome: Continue}
		}
	}
	return Result{Outcome: Draw}
}

// Other returns the opposing mark.
func (m Mark) Other() Mark {
	if m == X {
		return O
	}
	return X
}
