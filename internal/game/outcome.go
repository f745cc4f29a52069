package game

// Outcome summarises a board from Player One's point of view.
type Outcome struct {
	Winner Player // zero on a draw
	Margin int    // always non-negative
	P1     int
	P2     int
}

func (o Outcome) Draw() bool { return o.Winner == 0 }

func (b Board) Outcome() Outcome {
	o := Outcome{P1: b.Score(One), P2: b.Score(Two)}
	switch d := o.P1 - o.P2; {
	case d > 0:
		o.Winner, o.Margin = One, d
	case d < 0:
		o.Winner, o.Margin = Two, -d
	}
	return o
}
