package vmd

import (
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/tiendc/go-deepcopy"
)

// BoneFrame はボーンのキーフレーム
type BoneFrame struct {
	index          int
	Position       *mmath.MVec3
	Rotation       *mmath.MQuaternion
	Curves         *BoneCurves
	Registered     bool // キーとして登録されているか
	Read           bool // ファイルから読み込んだキーか
	DisablePhysics bool
}

func NewBoneFrame(index int) *BoneFrame {
	return &BoneFrame{
		index:  index,
		Curves: NewBoneCurves(),
	}
}

func (bf *BoneFrame) Index() int {
	return bf.index
}

func (bf *BoneFrame) SetIndex(index int) {
	bf.index = index
}

func (bf *BoneFrame) FilledPosition() *mmath.MVec3 {
	if bf.Position == nil {
		return mmath.NewMVec3()
	}
	return bf.Position
}

func (bf *BoneFrame) FilledRotation() *mmath.MQuaternion {
	if bf.Rotation == nil {
		return mmath.NewMQuaternion()
	}
	return bf.Rotation
}

func (bf *BoneFrame) FilledCurves() *BoneCurves {
	if bf.Curves == nil {
		return NewBoneCurves()
	}
	return bf.Curves
}

func (bf *BoneFrame) Copy() *BoneFrame {
	copied := &BoneFrame{}
	if err := deepcopy.Copy(copied, bf); err != nil {
		copied = &BoneFrame{
			Registered:     bf.Registered,
			Read:           bf.Read,
			DisablePhysics: bf.DisablePhysics,
		}
		if bf.Position != nil {
			copied.Position = bf.Position.Copy()
		}
		if bf.Rotation != nil {
			copied.Rotation = bf.Rotation.Copy()
		}
		if bf.Curves != nil {
			copied.Curves = bf.Curves.Copy()
		}
	}
	copied.index = bf.index
	return copied
}
