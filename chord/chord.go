package chord

import (
	"fmt"
	"sort"
	"strings"
)

type Chord struct {
	Name     string
	FullName string
	Quality  string
	Function string
	Degree   string
	Root     Note
	// Tones is the voicing played for the chord, root first.
	Tones    []Note
	BassNote Note
}

func (c Chord) PitchClasses() []int {
	res := make([]int, len(c.Tones))
	for i, t := range c.Tones {
		res[i] = t.PitchClass
	}
	return res
}

func (c Chord) Contains(pc int) bool {
	for _, t := range c.Tones {
		if t.PitchClass == pc {
			return true
		}
	}
	return false
}

// Nearest returns the chord tone closest to n, trying each tone in the
// octave of n and the ones on either side. Ties go to the earlier tone.
func (c Chord) Nearest(n Note) Note {
	var best Note
	bestDistance := -1
	for _, t := range c.Tones {
		for _, octave := range []int{n.Octave - 1, n.Octave, n.Octave + 1} {
			candidate := t.InOctave(octave)
			d := Distance(candidate, n)
			if bestDistance == -1 || d < bestDistance {
				best, bestDistance = candidate, d
			}
		}
	}
	return best
}

type Progression []Chord

func (p Progression) Names() []string {
	res := make([]string, len(p))
	for i, c := range p {
		res[i] = c.Name
	}
	return res
}

// i - VI - III - VII in A minor
var DefaultProgression = Progression{
	{
		Name: "Am", FullName: "A minor", Quality: "minor", Function: "tonic", Degree: "i",
		Root: MustParse("A3"), Tones: MustParseAll("A3", "C4", "E4"), BassNote: MustParse("A2"),
	},
	{
		Name: "F", FullName: "F major", Quality: "major", Function: "subdominant", Degree: "VI",
		Root: MustParse("F3"), Tones: MustParseAll("F3", "A3", "C4"), BassNote: MustParse("F2"),
	},
	{
		Name: "C", FullName: "C major", Quality: "major", Function: "dominant", Degree: "III",
		Root: MustParse("C4"), Tones: MustParseAll("C4", "E4", "G4"), BassNote: MustParse("C3"),
	},
	{
		Name: "G", FullName: "G major", Quality: "major", Function: "subtonic", Degree: "VII",
		Root: MustParse("G3"), Tones: MustParseAll("G3", "B3", "D4"), BassNote: MustParse("G2"),
	},
}

// Extensions holds the color tones (7ths, 9ths, 6ths) offered per chord name.
var Extensions = map[string][]Note{
	"Am": MustParseAll("G4", "B4", "D5"),
	"F":  MustParseAll("E4", "D5", "G4"),
	"C":  MustParseAll("B4", "D5", "F4"),
	"G":  MustParseAll("F4", "A4", "E5"),
}

type Scale struct {
	Name  string
	Notes []Note
}

func (s Scale) Contains(pc int) bool {
	for _, n := range s.Notes {
		if n.PitchClass == pc {
			return true
		}
	}
	return false
}

// APentatonic is what notes are judged against: A C D E G.
var APentatonic = Scale{
	Name:  "A minor pentatonic",
	Notes: MustParseAll("A3", "C4", "D4", "E4", "G4", "A4", "C5", "D5"),
}

// ANaturalMinor supplies the letters for passing tones.
var ANaturalMinor = Scale{
	Name:  "A natural minor",
	Notes: MustParseAll("A3", "B3", "C4", "D4", "E4", "F4", "G4", "A4", "B4", "C5", "D5", "E5"),
}

// Key identifies a set of sounding MIDI pitches, e.g. "57-60-64".
func Key(pitches []uint8) string {
	sorted := make([]uint8, len(pitches))
	copy(sorted, pitches)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return strings.Join(parts, "-")
}

// KeyOf is Key for named notes.
func KeyOf(notes []Note) string {
	pitches := make([]uint8, 0, len(notes))
	for _, n := range notes {
		if m := n.MIDI(); m >= 0 && m <= 127 {
			pitches = append(pitches, uint8(m))
		}
	}
	return Key(pitches)
}
