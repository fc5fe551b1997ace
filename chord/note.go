package chord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidNote = errors.New("invalid note")

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterPitchClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// DefaultOctave is assumed when a note name carries no octave.
const DefaultOctave = 4

// Note is a pitch class in a specific octave. MIDI numbering puts C4 at 60.
type Note struct {
	PitchClass int
	Octave     int
}

func PitchClassName(pc int) string {
	return pitchClassNames[mod12(pc)]
}

// ParsePitchClass accepts a letter with an optional '#' or 'b'.
func ParsePitchClass(s string) (int, error) {
	if s == "" {
		return 0, errors.Wrap(ErrInvalidNote, "empty pitch class")
	}
	pc, ok := letterPitchClasses[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidNote, "unknown letter in %q", s)
	}
	for _, acc := range s[1:] {
		switch acc {
		case '#':
			pc++
		case 'b':
			pc--
		default:
			return 0, errors.Wrapf(ErrInvalidNote, "unknown accidental in %q", s)
		}
	}
	return mod12(pc), nil
}

// ParseNote parses names like "C4", "F#3" or "Bb2". A missing octave means
// DefaultOctave.
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, "-0123456789")
	if i == -1 {
		pc, err := ParsePitchClass(s)
		return Note{PitchClass: pc, Octave: DefaultOctave}, err
	}
	pc, err := ParsePitchClass(s[:i])
	if err != nil {
		return Note{}, err
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil {
		return Note{}, errors.Wrapf(ErrInvalidNote, "bad octave in %q", s)
	}
	// B#3 is C4 and Cb4 is B3
	letter := letterPitchClasses[strings.ToUpper(s[:1])[0]]
	raw := letter + strings.Count(s[:i], "#") - strings.Count(s[1:i], "b")
	if raw >= 12 {
		octave++
	} else if raw < 0 {
		octave--
	}
	return Note{PitchClass: pc, Octave: octave}, nil
}

func MustParse(s string) Note {
	n, err := ParseNote(s)
	if err != nil {
		panic(err)
	}
	return n
}

func ParseAll(names []string) ([]Note, error) {
	res := make([]Note, len(names))
	for i, name := range names {
		n, err := ParseNote(name)
		if err != nil {
			return nil, err
		}
		res[i] = n
	}
	return res, nil
}

func MustParseAll(names ...string) []Note {
	res := make([]Note, len(names))
	for i, name := range names {
		res[i] = MustParse(name)
	}
	return res
}

func FromMIDI(m int) Note {
	return Note{PitchClass: mod12(m), Octave: floorDiv(m, 12) - 1}
}

func (n Note) MIDI() int {
	return (n.Octave+1)*12 + n.PitchClass
}

func (n Note) String() string {
	return fmt.Sprintf("%s%d", PitchClassName(n.PitchClass), n.Octave)
}

func (n Note) InOctave(octave int) Note {
	return Note{PitchClass: n.PitchClass, Octave: octave}
}

// Distance is the absolute semitone distance between two notes.
func Distance(a, b Note) int {
	d := a.MIDI() - b.MIDI()
	if d < 0 {
		return -d
	}
	return d
}

func Names(notes []Note) []string {
	res := make([]string, len(notes))
	for i, n := range notes {
		res[i] = n.String()
	}
	return res
}

func mod12(x int) int {
	return ((x % 12) + 12) % 12
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
