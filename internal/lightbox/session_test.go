package lightbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{Src: "/media/" + string(rune('a'+i)) + ".png", Type: "image"}
	}
	return out
}

// seqRand returns its values in order, cycling.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)] % n
	r.i++
	return v
}

func TestOpenFindsSourceOrDefaultsToFirst(t *testing.T) {
	s := NewSession(items(3), nil)

	s.Open("/media/c.png")
	assert.Equal(t, State{Open: true, Index: 2}, s.State())

	s.Open("/media/missing.png")
	assert.Equal(t, 0, s.State().Index)
	assert.True(t, s.State().Open)
}

func TestNextPrevWraparound(t *testing.T) {
	s := NewSession(items(3), nil)
	s.Open("/media/c.png")

	s.Next()
	assert.Equal(t, 0, s.State().Index, "next from last wraps to first")

	s.Prev()
	assert.Equal(t, 2, s.State().Index, "prev from first wraps to last")

	s.Prev()
	assert.Equal(t, 1, s.State().Index)
}

func TestNavigationOnEmptyListIsNoop(t *testing.T) {
	s := NewSession(nil, nil)
	s.Open("/media/a.png")

	s.Next()
	s.Prev()
	s.Random()
	assert.Equal(t, 0, s.State().Index)

	_, ok := s.Current()
	assert.False(t, ok)

	s.PlayAll()
	assert.False(t, s.State().PlayAll)
}

func TestRandomNeverRepeatsCurrent(t *testing.T) {
	for _, n := range []int{2, 3, 10} {
		s := NewSession(items(n), nil)
		s.Open("/media/a.png")
		for trial := 0; trial < 1000; trial++ {
			before := s.State().Index
			s.Random()
			after := s.State().Index
			require.NotEqual(t, before, after, "n=%d trial=%d", n, trial)
			require.True(t, after >= 0 && after < n)
		}
	}
}

func TestRandomWithSingleItemIsNoop(t *testing.T) {
	s := NewSession(items(1), nil)
	s.Open("")
	s.Random()
	assert.Equal(t, 0, s.State().Index)
}

func TestPickDifferentCoversAllOtherIndices(t *testing.T) {
	seen := map[int]bool{}
	r := &seqRand{vals: []int{0, 1, 2, 3}}
	for i := 0; i < 4; i++ {
		seen[PickDifferent(r, 5, 2)] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 3: true, 4: true}, seen)
	assert.Equal(t, 7, PickDifferent(r, 1, 7))
}

func TestEndedSequentialLoops(t *testing.T) {
	s := NewSession(items(3), nil)
	s.PlayAll()
	require.True(t, s.State().PlayAll)
	require.Equal(t, 0, s.State().Index)

	var visited []int
	for i := 0; i < 4; i++ {
		require.True(t, s.Ended())
		visited = append(visited, s.State().Index)
	}
	assert.Equal(t, []int{1, 2, 0, 1}, visited)
}

func TestEndedShuffleUsesRandomRule(t *testing.T) {
	s := NewSession(items(4), &seqRand{vals: []int{2, 0, 0, 3}})
	s.SetShuffle(true)
	s.PlayAll()
	assert.Equal(t, 2, s.State().Index)

	s.Ended() // IntN(3)=0 -> 0
	assert.Equal(t, 0, s.State().Index)
	s.Ended() // IntN(3)=0 -> 0 >= 0 -> 1
	assert.Equal(t, 1, s.State().Index)
	s.Ended() // IntN(3)=3%3=0 -> 0
	assert.Equal(t, 0, s.State().Index)
}

func TestEndedWithoutPlayAllDoesNothing(t *testing.T) {
	s := NewSession(items(3), nil)
	s.Open("/media/a.png")
	assert.False(t, s.Ended())
	assert.Equal(t, 0, s.State().Index)
}

func TestFailedSkipsBrokenItemsInPlayAll(t *testing.T) {
	s := NewSession(items(3), nil)
	s.Open("/media/b.png")
	assert.False(t, s.Failed(), "a broken item outside play-all stays on screen")
	assert.Equal(t, 1, s.State().Index)

	s.PlayAll()
	require.True(t, s.Failed())
	require.True(t, s.Failed())
	assert.Equal(t, 2, s.State().Index)
	assert.True(t, s.State().PlayAll, "errors do not stop play-all")
}

func TestCloseResetsPlayAll(t *testing.T) {
	s := NewSession(items(3), nil)
	s.SetShuffle(true)
	s.PlayAll()
	idx := s.State().Index

	s.Close()
	state := s.State()
	assert.False(t, state.Open)
	assert.False(t, state.PlayAll)
	assert.True(t, state.Shuffle, "shuffle preference survives close")

	assert.False(t, s.Ended(), "late ended events after close are ignored")
	assert.Equal(t, idx, s.State().Index)

	s.Open("/media/a.png")
	assert.False(t, s.State().PlayAll, "reopening does not resume play-all")
}

func TestHandleKey(t *testing.T) {
	s := NewSession(items(3), nil)

	assert.False(t, s.HandleKey(KeyArrowRight), "keys ignored while closed")
	assert.Equal(t, 0, s.State().Index)

	s.Open("/media/a.png")
	assert.True(t, s.HandleKey(KeyArrowRight))
	assert.Equal(t, 1, s.State().Index)
	assert.True(t, s.HandleKey(KeyArrowLeft))
	assert.Equal(t, 0, s.State().Index)
	assert.False(t, s.HandleKey("Enter"))

	s.PlayAll()
	assert.True(t, s.HandleKey(KeyEscape))
	assert.False(t, s.State().Open)
	assert.False(t, s.State().PlayAll)
}

func TestHandleSwipe(t *testing.T) {
	tests := []struct {
		name      string
		start     float64
		end       float64
		handled   bool
		wantIndex int
	}{
		{name: "swipe left shows next", start: 300, end: 200, handled: true, wantIndex: 2},
		{name: "swipe right shows previous", start: 100, end: 200, handled: true, wantIndex: 0},
		{name: "exactly threshold is not a swipe", start: 100, end: 150, handled: false, wantIndex: 1},
		{name: "small drag is not a swipe", start: 100, end: 80, handled: false, wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(items(3), nil)
			s.Open("/media/b.png")
			assert.Equal(t, tt.handled, s.HandleSwipe(tt.start, tt.end))
			assert.Equal(t, tt.wantIndex, s.State().Index)
		})
	}

	closed := NewSession(items(3), nil)
	assert.False(t, closed.HandleSwipe(300, 0))
}

func TestToggleShuffle(t *testing.T) {
	s := NewSession(items(2), nil)
	assert.True(t, s.ToggleShuffle())
	assert.False(t, s.ToggleShuffle())
}
