package pmx

import "github.com/miu200521358/motion_supporter/pkg/config/merr"

type MorphType byte

const (
	MORPH_TYPE_GROUP        MorphType = 0
	MORPH_TYPE_VERTEX       MorphType = 1
	MORPH_TYPE_BONE         MorphType = 2
	MORPH_TYPE_UV           MorphType = 3
	MORPH_TYPE_EXTENDED_UV1 MorphType = 4
	MORPH_TYPE_EXTENDED_UV2 MorphType = 5
	MORPH_TYPE_EXTENDED_UV3 MorphType = 6
	MORPH_TYPE_EXTENDED_UV4 MorphType = 7
	MORPH_TYPE_MATERIAL     MorphType = 8
	MORPH_TYPE_FLIP         MorphType = 9
	MORPH_TYPE_IMPULSE      MorphType = 10
)

// Morph はモーフ。オフセットは保持しない
type Morph struct {
	index       int
	name        string
	EnglishName string
	Panel       byte
	MorphType   MorphType
	OffsetCount int
}

func NewMorph(name string) *Morph {
	return &Morph{index: -1, name: name}
}

func (m *Morph) Index() int {
	return m.index
}

func (m *Morph) Name() string {
	return m.name
}

type Morphs struct {
	values      []*Morph
	nameIndexes map[string]int
}

func NewMorphs(capacity int) *Morphs {
	return &Morphs{
		values:      make([]*Morph, 0, capacity),
		nameIndexes: make(map[string]int, capacity),
	}
}

func (ms *Morphs) Append(morph *Morph) {
	morph.index = len(ms.values)
	ms.values = append(ms.values, morph)
	ms.nameIndexes[morph.name] = morph.index
}

func (ms *Morphs) Len() int {
	return len(ms.values)
}

func (ms *Morphs) Values() []*Morph {
	return ms.values
}

func (ms *Morphs) GetByName(name string) (*Morph, error) {
	if index, ok := ms.nameIndexes[name]; ok {
		return ms.values[index], nil
	}
	return nil, merr.NewNameNotFoundError(name)
}

func (ms *Morphs) ContainsByName(name string) bool {
	_, ok := ms.nameIndexes[name]
	return ok
}
