package analysis

import (
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
	"lukechampine.com/frand"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/movegen"
	"github.com/domino14/gobblet/piece"
)

// Branching summarizes legal-move counts seen over random games.
type Branching struct {
	Games        int     `yaml:"games"`
	Positions    int     `yaml:"positions"`
	Mean         float64 `yaml:"mean"`
	StdDev       float64 `yaml:"stdev"`
	Min          int     `yaml:"min"`
	Max          int     `yaml:"max"`
	InitialMoves int     `yaml:"initial-moves"`

	samples []float64
}

// SampleBranching plays games random games of at most maxPlies plies from
// the initial position and records the number of legal moves at every
// position reached.
func SampleBranching(games, maxPlies int) Branching {
	var counts []int
	for g := 0; g < games; g++ {
		b := board.New()
		for ply := 0; ply < maxPlies; ply++ {
			moves := movegen.GenAll(b)
			if len(moves) == 0 {
				break
			}
			counts = append(counts, len(moves))
			b.Apply(moves[frand.Intn(len(moves))])
			if b.Winner() != piece.NoPlayer {
				break
			}
		}
	}
	br := Branching{
		Games:        games,
		Positions:    len(counts),
		InitialMoves: len(movegen.GenAll(board.New())),
	}
	if len(counts) == 0 {
		return br
	}
	br.samples = lo.Map(counts, func(n int, _ int) float64 { return float64(n) })
	br.Mean, br.StdDev = stat.MeanStdDev(br.samples, nil)
	br.Min, br.Max = lo.Min(counts), lo.Max(counts)
	return br
}

// WriteHistogram draws the sampled branching factors.
func (b Branching) WriteHistogram(w io.Writer, bins, width int) error {
	if len(b.samples) == 0 {
		_, err := io.WriteString(w, "no samples\n")
		return err
	}
	h := histogram.Hist(bins, b.samples)
	return histogram.Fprint(w, h, histogram.Linear(width))
}
