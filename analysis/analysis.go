// Package analysis computes statistics over a solved tablebase.
package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
	"lukechampine.com/frand"

	"github.com/domino14/gobblet/board"
	"github.com/domino14/gobblet/piece"
	"github.com/domino14/gobblet/symmetry"
	"github.com/domino14/gobblet/tablebase"
)

// Distribution counts outcomes.
type Distribution struct {
	Total   int     `yaml:"total"`
	P1Wins  int     `yaml:"p1-wins"`
	P2Wins  int     `yaml:"p2-wins"`
	Draws   int     `yaml:"draws"`
	P1Pct   float64 `yaml:"p1-pct"`
	P2Pct   float64 `yaml:"p2-pct"`
	DrawPct float64 `yaml:"draw-pct"`
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func OutcomeDistribution(entries []tablebase.Entry) Distribution {
	count := func(o tablebase.Outcome) int {
		return lo.CountBy(entries, func(e tablebase.Entry) bool { return e.Outcome == o })
	}
	d := Distribution{
		Total:  len(entries),
		P1Wins: count(tablebase.WinP1),
		P2Wins: count(tablebase.WinP2),
		Draws:  count(tablebase.Draw),
	}
	d.P1Pct = pct(d.P1Wins, d.Total)
	d.P2Pct = pct(d.P2Wins, d.Total)
	d.DrawPct = pct(d.Draws, d.Total)
	return d
}

// PieceCount is the outcome distribution of positions with a given number
// of pieces on the board.
type PieceCount struct {
	Pieces int          `yaml:"pieces"`
	Dist   Distribution `yaml:"outcomes"`
}

// ByPieces groups entries by the number of pieces on the board, from 0 to
// 12.
func ByPieces(entries []tablebase.Entry) []PieceCount {
	groups := lo.GroupBy(entries, func(e tablebase.Entry) int {
		return board.FromUint64(e.Key).NumPieces()
	})
	out := make([]PieceCount, 0, len(groups))
	for n := 0; n <= 2*piece.NumSizes*piece.PiecesPerSize; n++ {
		if g, ok := groups[n]; ok {
			out = append(out, PieceCount{Pieces: n, Dist: OutcomeDistribution(g)})
		}
	}
	return out
}

// CanonicalCheck is the result of verifying stored keys.
type CanonicalCheck struct {
	Sampled      int      `yaml:"sampled"`
	NonCanonical int      `yaml:"non-canonical"`
	Undecodable  int      `yaml:"undecodable"`
	Examples     []string `yaml:"examples,omitempty"`
}

// CheckCanonical verifies that keys are canonical, decodable encodings. A
// sample of zero or more than len(entries) checks everything.
func CheckCanonical(entries []tablebase.Entry, sample int) CanonicalCheck {
	pick := entries
	if sample > 0 && sample < len(entries) {
		pick = make([]tablebase.Entry, sample)
		for i := range pick {
			pick[i] = entries[frand.Intn(len(entries))]
		}
	}
	var c CanonicalCheck
	c.Sampled = len(pick)
	for _, e := range pick {
		b, err := board.Decode(e.Key)
		if err != nil {
			c.Undecodable++
			c.addExample(fmt.Sprintf("%#x: %v", e.Key, err))
			continue
		}
		if k := symmetry.Canonical(b); k != e.Key {
			c.NonCanonical++
			c.addExample(fmt.Sprintf("%#x: canonical is %#x", e.Key, k))
		}
	}
	return c
}

func (c *CanonicalCheck) addExample(s string) {
	if len(c.Examples) < 5 {
		c.Examples = append(c.Examples, s)
	}
}

// Report bundles every statistic the tbstats tool prints.
type Report struct {
	Outcomes  Distribution   `yaml:"outcomes"`
	ByPieces  []PieceCount   `yaml:"by-pieces"`
	Branching Branching      `yaml:"branching"`
	Canonical CanonicalCheck `yaml:"canonical"`
	Distances *DistanceStats `yaml:"distances,omitempty"`
}

func (r Report) YAML() (string, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// WriteText prints the report in a human-readable layout.
func (r Report) WriteText(w io.Writer) error {
	var ss strings.Builder
	d := r.Outcomes
	fmt.Fprintf(&ss, "Positions: %d\n", d.Total)
	fmt.Fprintf(&ss, "  P1 wins: %-10d (%.2f%%)\n", d.P1Wins, d.P1Pct)
	fmt.Fprintf(&ss, "  P2 wins: %-10d (%.2f%%)\n", d.P2Wins, d.P2Pct)
	fmt.Fprintf(&ss, "  Draws:   %-10d (%.2f%%)\n", d.Draws, d.DrawPct)
	fmt.Fprintln(&ss)
	fmt.Fprintf(&ss, "%-8s%-12s%-10s%-10s%-10s\n", "Pieces", "Positions", "P1 %", "P2 %", "Draw %")
	for _, pc := range r.ByPieces {
		fmt.Fprintf(&ss, "%-8d%-12d%-10.2f%-10.2f%-10.2f\n",
			pc.Pieces, pc.Dist.Total, pc.Dist.P1Pct, pc.Dist.P2Pct, pc.Dist.DrawPct)
	}
	fmt.Fprintln(&ss)
	b := r.Branching
	fmt.Fprintf(&ss, "Branching factor over %d positions (%d games): mean %.2f, stdev %.2f, min %d, max %d\n",
		b.Positions, b.Games, b.Mean, b.StdDev, b.Min, b.Max)
	fmt.Fprintf(&ss, "Initial position: %d legal moves\n", b.InitialMoves)
	fmt.Fprintln(&ss)
	c := r.Canonical
	fmt.Fprintf(&ss, "Canonical check: %d sampled, %d non-canonical, %d undecodable\n",
		c.Sampled, c.NonCanonical, c.Undecodable)
	for _, ex := range c.Examples {
		fmt.Fprintf(&ss, "  %s\n", ex)
	}
	if r.Distances != nil {
		ds := r.Distances
		fmt.Fprintln(&ss)
		fmt.Fprintf(&ss, "Distance to win: %d solved, %d unsolved, max %d\n",
			ds.Solved, ds.Unsolved, ds.Max)
		if ds.Initial >= 0 {
			fmt.Fprintf(&ss, "From the initial position: %d plies\n", ds.Initial)
		}
		if len(ds.Line) > 0 {
			fmt.Fprintf(&ss, "Line: %s\n", strings.Join(ds.Line, " "))
		}
	}
	_, err := io.WriteString(w, ss.String())
	return err
}
