package delta

import (
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
)

// BoneDelta は1ボーンのある時点での変形結果
type BoneDelta struct {
	Bone          *pmx.Bone
	Frame         int
	GlobalMatrix  *mmath.MMat4       // ワールド行列
	LocalMatrix   *mmath.MMat4       // 親からの相対行列
	FramePosition *mmath.MVec3       // モーションの移動量
	FrameRotation *mmath.MQuaternion // モーションの回転量(付与込み)
}

func NewBoneDelta(bone *pmx.Bone, frame int) *BoneDelta {
	return &BoneDelta{
		Bone:  bone,
		Frame: frame,
	}
}

func (bd *BoneDelta) FilledGlobalMatrix() *mmath.MMat4 {
	if bd.GlobalMatrix == nil {
		return mmath.NewMMat4ByTranslate(bd.Bone.Position)
	}
	return bd.GlobalMatrix
}

func (bd *BoneDelta) FilledLocalMatrix() *mmath.MMat4 {
	if bd.LocalMatrix == nil {
		return mmath.NewMMat4()
	}
	return bd.LocalMatrix
}

// FilledGlobalPosition はワールド座標
func (bd *BoneDelta) FilledGlobalPosition() *mmath.MVec3 {
	return bd.FilledGlobalMatrix().Translation()
}

// FilledGlobalRotation はワールド回転
func (bd *BoneDelta) FilledGlobalRotation() *mmath.MQuaternion {
	return bd.FilledGlobalMatrix().Quaternion()
}

func (bd *BoneDelta) FilledFramePosition() *mmath.MVec3 {
	if bd.FramePosition == nil {
		return mmath.NewMVec3()
	}
	return bd.FramePosition
}

func (bd *BoneDelta) FilledFrameRotation() *mmath.MQuaternion {
	if bd.FrameRotation == nil {
		return mmath.NewMQuaternion()
	}
	return bd.FrameRotation
}

// BoneDeltas はボーンINDEX順の変形結果
type BoneDeltas struct {
	values      []*BoneDelta
	nameIndexes map[string]int
}

func NewBoneDeltas(bones *pmx.Bones) *BoneDeltas {
	return &BoneDeltas{
		values:      make([]*BoneDelta, bones.Len()),
		nameIndexes: make(map[string]int, bones.Len()),
	}
}

func (bds *BoneDeltas) Get(index int) *BoneDelta {
	if index < 0 || index >= len(bds.values) {
		return nil
	}
	return bds.values[index]
}

// GetByName は計算済みの変形結果。未計算の場合は nil
func (bds *BoneDeltas) GetByName(name string) *BoneDelta {
	if index, ok := bds.nameIndexes[name]; ok {
		return bds.values[index]
	}
	return nil
}

func (bds *BoneDeltas) Contains(index int) bool {
	return bds.Get(index) != nil
}

func (bds *BoneDeltas) Update(bd *BoneDelta) {
	index := bd.Bone.Index()
	if index < 0 || index >= len(bds.values) {
		return
	}
	bds.values[index] = bd
	bds.nameIndexes[bd.Bone.Name()] = index
}

// Values は計算済みの変形結果一覧(INDEX順)
func (bds *BoneDeltas) Values() []*BoneDelta {
	values := make([]*BoneDelta, 0, len(bds.nameIndexes))
	for _, bd := range bds.values {
		if bd != nil {
			values = append(values, bd)
		}
	}
	return values
}

// VmdDeltas はあるフレームの変形結果
type VmdDeltas struct {
	Frame int
	Bones *BoneDeltas
}

func NewVmdDeltas(frame int, bones *pmx.Bones) *VmdDeltas {
	return &VmdDeltas{
		Frame: frame,
		Bones: NewBoneDeltas(bones),
	}
}
