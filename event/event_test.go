package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiNotifiesInOrder(t *testing.T) {
	var order []string
	first := Func(func(Event) { order = append(order, "first") })
	second := Func(func(Event) { order = append(order, "second") })

	Multi{first, nil, second}.Notify(Beat{})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRecorderFiltersByKind(t *testing.T) {
	rec := &Recorder{}
	rec.Notify(Beat{})
	rec.Notify(ChordChanged{})
	rec.Notify(Beat{})

	assert.Len(t, rec.OfKind(KindBeat), 2)
	assert.Len(t, rec.OfKind(KindChordChanged), 1)
	assert.Empty(t, rec.OfKind(KindNoteHit))
}

func TestOrDiscard(t *testing.T) {
	assert.Equal(t, Discard, OrDiscard(nil))
	rec := &Recorder{}
	assert.Equal(t, Observer(rec), OrDiscard(rec))
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "NoteMissed", NoteMissed{}.Kind().String())
	assert.Equal(t, "Unknown", Kind(42).String())
}
