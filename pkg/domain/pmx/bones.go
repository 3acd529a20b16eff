package pmx

import (
	"slices"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
)

// Bones はボーン一覧。INDEXと名前の両方で引ける
type Bones struct {
	values      []*Bone
	nameIndexes map[string]int
}

func NewBones(capacity int) *Bones {
	return &Bones{
		values:      make([]*Bone, 0, capacity),
		nameIndexes: make(map[string]int, capacity),
	}
}

func (bs *Bones) Len() int {
	return len(bs.values)
}

func (bs *Bones) Values() []*Bone {
	return bs.values
}

// Append は末尾に追加し、INDEXを振り直す
func (bs *Bones) Append(bone *Bone) {
	bone.SetIndex(len(bs.values))
	bs.values = append(bs.values, bone)
	bs.nameIndexes[bone.Name()] = bone.Index()
}

func (bs *Bones) Get(index int) (*Bone, error) {
	if index < 0 || index >= len(bs.values) {
		return nil, merr.NewIndexOutOfRangeError(index)
	}
	return bs.values[index], nil
}

func (bs *Bones) GetByName(name string) (*Bone, error) {
	if index, ok := bs.nameIndexes[name]; ok {
		return bs.values[index], nil
	}
	return nil, merr.NewNameNotFoundError(name)
}

func (bs *Bones) ContainsByName(name string) bool {
	_, ok := bs.nameIndexes[name]
	return ok
}

func (bs *Bones) Contains(index int) bool {
	return index >= 0 && index < len(bs.values)
}

// Setup は親子関係と親からの相対位置を構築する
func (bs *Bones) Setup() {
	for _, bone := range bs.values {
		bone.ChildBoneIndexes = make([]int, 0)
		bone.ParentBoneIndexes = make([]int, 0)
	}

	for _, bone := range bs.values {
		if parent, err := bs.Get(bone.ParentIndex); err == nil {
			parent.ChildBoneIndexes = append(parent.ChildBoneIndexes, bone.Index())
			bone.ParentRelativePosition = bone.Position.Subed(parent.Position)
		} else {
			bone.ParentRelativePosition = bone.Position.Copy()
		}

		// 近い親から順に並べる。循環している場合は打ち切る
		parentIndex := bone.ParentIndex
		for bs.Contains(parentIndex) && !slices.Contains(bone.ParentBoneIndexes, parentIndex) &&
			parentIndex != bone.Index() {
			bone.ParentBoneIndexes = append(bone.ParentBoneIndexes, parentIndex)
			parentIndex = bs.values[parentIndex].ParentIndex
		}
	}
}

// Depth は親の階層数
func (bs *Bones) Depth(index int) int {
	if bone, err := bs.Get(index); err == nil {
		return len(bone.ParentBoneIndexes)
	}
	return 0
}

// LocalAxisX はボーンのローカルX軸(捩り分解に使う向き)を返す
func (bs *Bones) LocalAxisX(name string) *mmath.MVec3 {
	bone, err := bs.GetByName(name)
	if err != nil {
		return mmath.MVec3UnitX.Copy()
	}

	if bone.HasFixedAxis() {
		return bone.FixedAxis.Normalized()
	}

	if bone.HasLocalAxis() && !bone.LocalAxisX.IsZero() {
		return bone.LocalAxisX.Normalized()
	}

	var tail *mmath.MVec3
	if bone.IsTailBone() {
		if tailBone, err := bs.Get(bone.TailIndex); err == nil {
			tail = tailBone.Position.Subed(bone.Position)
		}
	} else {
		tail = bone.TailPosition.Copy()
	}

	if tail == nil || tail.IsZero() {
		for _, childIndex := range bone.ChildBoneIndexes {
			child := bs.values[childIndex]
			if !child.Position.NearEquals(bone.Position, 1e-6) {
				tail = child.Position.Subed(bone.Position)
				break
			}
		}
	}

	if tail == nil || tail.IsZero() {
		if bone.Direction() == BONE_DIRECTION_RIGHT {
			return mmath.MVec3UnitXNeg.Copy()
		}
		return mmath.MVec3UnitX.Copy()
	}

	return tail.Normalized()
}

func (bs *Bones) Copy() *Bones {
	copied := NewBones(len(bs.values))
	for _, bone := range bs.values {
		copied.Append(bone.Copy())
	}
	return copied
}
