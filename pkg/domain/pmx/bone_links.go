package pmx

import (
	"slices"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
)

// BoneLinks は親から子の順に並んだボーンの連なり
type BoneLinks struct {
	bones       []*Bone
	nameIndexes map[string]int
}

func newBoneLinks(bones []*Bone) *BoneLinks {
	bl := &BoneLinks{
		bones:       bones,
		nameIndexes: make(map[string]int, len(bones)),
	}
	for i, bone := range bones {
		bl.nameIndexes[bone.Name()] = i
	}
	return bl
}

func (bl *BoneLinks) Len() int {
	return len(bl.bones)
}

func (bl *BoneLinks) Bones() []*Bone {
	return bl.bones
}

func (bl *BoneLinks) Get(index int) *Bone {
	return bl.bones[index]
}

func (bl *BoneLinks) GetByName(name string) (*Bone, bool) {
	if i, ok := bl.nameIndexes[name]; ok {
		return bl.bones[i], true
	}
	return nil, false
}

func (bl *BoneLinks) Contains(name string) bool {
	_, ok := bl.nameIndexes[name]
	return ok
}

// Last は末端(エフェクタ側)のボーン
func (bl *BoneLinks) Last() *Bone {
	if len(bl.bones) == 0 {
		return nil
	}
	return bl.bones[len(bl.bones)-1]
}

func (bl *BoneLinks) Names() []string {
	names := make([]string, len(bl.bones))
	for i, bone := range bl.bones {
		names[i] = bone.Name()
	}
	return names
}

// CreateLinkToRoot は対象ボーンからルートまでを、ルート側から並べて返す
func (bs *Bones) CreateLinkToRoot(name string) (*BoneLinks, error) {
	bone, err := bs.GetByName(name)
	if err != nil {
		return nil, err
	}

	bones := make([]*Bone, 0, len(bone.ParentBoneIndexes)+1)
	for i := len(bone.ParentBoneIndexes) - 1; i >= 0; i-- {
		parentIndex := bone.ParentBoneIndexes[i]
		bones = append(bones, bs.values[parentIndex])
	}
	bones = append(bones, bone)

	return newBoneLinks(bones), nil
}

// CreateLinkFromTo は from(祖先) から to までのリンク。from が祖先でない場合はエラー
func (bs *Bones) CreateLinkFromTo(fromName, toName string) (*BoneLinks, error) {
	links, err := bs.CreateLinkToRoot(toName)
	if err != nil {
		return nil, err
	}

	start, ok := links.nameIndexes[fromName]
	if !ok {
		return nil, merr.NewNameNotFoundError(fromName)
	}

	return newBoneLinks(links.bones[start:]), nil
}

// CreateLinksToRoot は複数ボーンのルートまでのリンクを階層順に統合する
func (bs *Bones) CreateLinksToRoot(names ...string) (*BoneLinks, error) {
	indexes := make([]int, 0)
	for _, name := range names {
		links, err := bs.CreateLinkToRoot(name)
		if err != nil {
			return nil, err
		}
		for _, bone := range links.bones {
			if !slices.Contains(indexes, bone.Index()) {
				indexes = append(indexes, bone.Index())
			}
		}
	}

	return bs.sortedLinks(indexes), nil
}

// AllLinks はモデル全体を階層順に並べたリンク
func (bs *Bones) AllLinks() *BoneLinks {
	indexes := make([]int, len(bs.values))
	for i := range bs.values {
		indexes[i] = i
	}
	return bs.sortedLinks(indexes)
}

func (bs *Bones) sortedLinks(indexes []int) *BoneLinks {
	slices.SortStableFunc(indexes, func(a, b int) int {
		if da, db := bs.Depth(a), bs.Depth(b); da != db {
			return da - db
		}
		return a - b
	})

	bones := make([]*Bone, len(indexes))
	for i, index := range indexes {
		bones[i] = bs.values[index]
	}
	return newBoneLinks(bones)
}
