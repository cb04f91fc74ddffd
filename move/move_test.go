package move

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/gobblet/piece"
)

func TestShortDescription(t *testing.T) {
	is := is.New(t)
	is.Equal(NewPlaceMove(piece.Medium, 4).ShortDescription(), "M4")
	is.Equal(NewPlaceMove(piece.Small, 0).ShortDescription(), "S0")
	is.Equal(NewSlideMove(2, 5).ShortDescription(), "2-5")
}

func TestParse(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		in  string
		exp Move
	}
	cases := []testdata{
		{"L8", NewPlaceMove(piece.Large, 8)},
		{"s3", NewPlaceMove(piece.Small, 3)},
		{"0-4", NewSlideMove(0, 4)},
		{"7->1", NewSlideMove(7, 1)},
		{"3 > 6", NewSlideMove(3, 6)},
	}
	for _, tc := range cases {
		m, err := Parse(tc.in)
		is.NoErr(err)
		is.Equal(m, tc.exp)
	}
}

func TestParseErrors(t *testing.T) {
	is := is.New(t)
	for _, s := range []string{"", "X4", "S9", "4-4", "12", "9-1"} {
		_, err := Parse(s)
		is.True(errors.Is(err, ErrBadMoveString))
	}
}

func TestParseRoundTrip(t *testing.T) {
	is := is.New(t)
	for _, sz := range piece.Sizes {
		for to := piece.Pos(0); to < piece.NumCells; to++ {
			m := NewPlaceMove(sz, to)
			p, err := Parse(m.ShortDescription())
			is.NoErr(err)
			is.Equal(p, m)
		}
	}
}
