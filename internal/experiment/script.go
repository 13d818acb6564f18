package experiment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/padbot/internal/motion"
)

var ErrEmptyScript = errors.New("experiment: empty script")

// Step is one scripted request. A step with At >= 0 fires on exactly that
// tick whatever the sequencer is doing; otherwise it waits in order for the
// sequencer to go idle.
type Step struct {
	Dir motion.Direction
	At  int
}

func (s Step) String() string {
	if s.At >= 0 {
		return fmt.Sprintf("%s@%d", s.Dir.Letter(), s.At)
	}
	return s.Dir.Letter()
}

// Script replays operator requests. Untimed steps form a queue that is
// drained one per idle tick, so each move starts after the previous one
// finished. Timed steps model an impatient operator and may be dropped.
type Script struct {
	steps []Step
	timed map[int]motion.Direction
	queue []motion.Direction
	next  int
}

// ParseScript reads a comma separated list such as "F,L,F@100,X@130,R".
// Letters are F, B, L, R, X (reset) and - (one idle tick of pause).
func ParseScript(s string) (*Script, error) {
	var steps []Step
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		at := -1
		if i := strings.IndexByte(tok, '@'); i >= 0 {
			n, err := strconv.Atoi(tok[i+1:])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("experiment: bad tick in %q", tok)
			}
			at = n
			tok = tok[:i]
		}

		dir, err := motion.ParseDirection(tok)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Dir: dir, At: at})
	}

	if len(steps) == 0 {
		return nil, ErrEmptyScript
	}
	return NewScript(steps), nil
}

func NewScript(steps []Step) *Script {
	sc := &Script{
		steps: steps,
		timed: make(map[int]motion.Direction),
	}
	for _, st := range steps {
		if st.At >= 0 {
			sc.timed[st.At] = st.Dir
		} else {
			sc.queue = append(sc.queue, st.Dir)
		}
	}
	return sc
}

// Request implements sim.Script.
func (s *Script) Request(tick int, state motion.State) motion.Direction {
	if d, ok := s.timed[tick]; ok {
		return d
	}
	if state != motion.Idle || s.next >= len(s.queue) {
		return motion.None
	}
	d := s.queue[s.next]
	s.next++
	return d
}

// Reset rewinds the queue so the script can be replayed.
func (s *Script) Reset() { s.next = 0 }

// Pending is the number of queued steps not yet issued.
func (s *Script) Pending() int { return len(s.queue) - s.next }

func (s *Script) Steps() []Step { return s.steps }

func (s *Script) String() string {
	parts := make([]string, len(s.steps))
	for i, st := range s.steps {
		parts[i] = st.String()
	}
	return strings.Join(parts, ",")
}
