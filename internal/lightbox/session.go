package lightbox

import (
	"math"
	"math/rand/v2"
	"time"
)

// SwipeThreshold is the horizontal distance in pixels a touch drag must
// exceed to count as a swipe.
const SwipeThreshold = 50

// In play-all mode an image stays up for ImageDwell, and an item that
// failed to load keeps its error visible for ErrorDwell, before the
// session advances.
const (
	ImageDwell = 5 * time.Second
	ErrorDwell = 2 * time.Second
)

// Keys understood by HandleKey.
const (
	KeyArrowRight = "ArrowRight"
	KeyArrowLeft  = "ArrowLeft"
	KeyEscape     = "Escape"
)

// Item is one entry of the viewer playlist.
type Item struct {
	Src  string `json:"src"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Rand is the randomness a session needs.
type Rand interface {
	IntN(n int) int
}

type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }

// PickDifferent returns a uniformly random index in [0, n) other than cur.
// With fewer than two items, or a cur outside the range, no different index
// can be guaranteed: cur is returned for n < 2, and any index otherwise.
func PickDifferent(r Rand, n, cur int) int {
	if n < 2 {
		return cur
	}
	if cur < 0 || cur >= n {
		return r.IntN(n)
	}
	j := r.IntN(n - 1)
	if j >= cur {
		j++
	}
	return j
}

// State is a snapshot of a session.
type State struct {
	Open    bool `json:"open"`
	Index   int  `json:"index"`
	Shuffle bool `json:"shuffle"`
	PlayAll bool `json:"playAll"`
}

// Session is the viewer state for one gallery page view. It is not safe for
// concurrent use; the browser drives it from a single event loop.
type Session struct {
	items   []Item
	index   int
	open    bool
	shuffle bool
	playAll bool
	rng     Rand
}

// NewSession creates a closed session over items. A nil rng uses math/rand/v2.
func NewSession(items []Item, rng Rand) *Session {
	if rng == nil {
		rng = defaultRand{}
	}
	return &Session{items: items, rng: rng}
}

// Items returns the playlist.
func (s *Session) Items() []Item {
	return s.items
}

// Len returns the number of items.
func (s *Session) Len() int {
	return len(s.items)
}

// Current returns the item under the cursor, if any.
func (s *Session) Current() (Item, bool) {
	if len(s.items) == 0 {
		return Item{}, false
	}
	return s.items[s.index], true
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	return State{Open: s.open, Index: s.index, Shuffle: s.shuffle, PlayAll: s.playAll}
}

// Open shows the item whose Src equals src, or the first item when there is
// no such item.
func (s *Session) Open(src string) {
	s.index = 0
	for i, item := range s.items {
		if item.Src == src {
			s.index = i
			break
		}
	}
	s.open = true
}

// Close hides the viewer and stops play-all.
func (s *Session) Close() {
	s.open = false
	s.playAll = false
}

// Next moves forward one item, wrapping to the start.
func (s *Session) Next() {
	if len(s.items) == 0 {
		return
	}
	s.index = (s.index + 1) % len(s.items)
}

// Prev moves back one item, wrapping to the end.
func (s *Session) Prev() {
	if len(s.items) == 0 {
		return
	}
	s.index = (s.index - 1 + len(s.items)) % len(s.items)
}

// Random jumps to a different, uniformly chosen item.
func (s *Session) Random() {
	if len(s.items) < 2 {
		return
	}
	s.index = PickDifferent(s.rng, len(s.items), s.index)
}

// SetShuffle turns shuffle mode on or off.
func (s *Session) SetShuffle(on bool) {
	s.shuffle = on
}

// ToggleShuffle flips shuffle mode and returns the new value.
func (s *Session) ToggleShuffle() bool {
	s.shuffle = !s.shuffle
	return s.shuffle
}

// PlayAll opens the viewer in play-all mode, at a random item when shuffle
// is on and at the first item otherwise.
func (s *Session) PlayAll() {
	if len(s.items) == 0 {
		return
	}
	s.index = 0
	if s.shuffle {
		s.index = s.rng.IntN(len(s.items))
	}
	s.open = true
	s.playAll = true
}

// Ended handles the natural end of playback of the current item and
// reports whether the session advanced.
func (s *Session) Ended() bool {
	if !s.open || !s.playAll || len(s.items) == 0 {
		return false
	}
	if s.shuffle {
		s.Random()
	} else {
		s.Next()
	}
	return true
}

// Failed handles a load error of the current item. In play-all mode a
// broken item is skipped like one that ended, so playback never stalls.
func (s *Session) Failed() bool {
	return s.Ended()
}

// HandleKey applies a keyboard event and reports whether it was consumed.
// Consumed events must not propagate to page-level handlers.
func (s *Session) HandleKey(key string) bool {
	if !s.open {
		return false
	}
	switch key {
	case KeyArrowRight:
		s.Next()
	case KeyArrowLeft:
		s.Prev()
	case KeyEscape:
		s.Close()
	default:
		return false
	}
	return true
}

// HandleSwipe classifies a horizontal touch drag. Dragging left shows the
// next item, dragging right the previous one.
func (s *Session) HandleSwipe(startX, endX float64) bool {
	if !s.open {
		return false
	}
	dx := endX - startX
	if math.Abs(dx) <= SwipeThreshold {
		return false
	}
	if dx < 0 {
		s.Next()
	} else {
		s.Prev()
	}
	return true
}
