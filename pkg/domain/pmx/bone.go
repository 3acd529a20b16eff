package pmx

import (
	"slices"
	"strings"

	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/tiendc/go-deepcopy"
)

type BoneFlag uint16

const (
	BONE_FLAG_NONE                      BoneFlag = 0x0000
	BONE_FLAG_TAIL_IS_BONE              BoneFlag = 0x0001
	BONE_FLAG_CAN_ROTATE                BoneFlag = 0x0002
	BONE_FLAG_CAN_TRANSLATE             BoneFlag = 0x0004
	BONE_FLAG_IS_VISIBLE                BoneFlag = 0x0008
	BONE_FLAG_CAN_MANIPULATE            BoneFlag = 0x0010
	BONE_FLAG_IS_IK                     BoneFlag = 0x0020
	BONE_FLAG_IS_EXTERNAL_LOCAL         BoneFlag = 0x0080
	BONE_FLAG_IS_EXTERNAL_ROTATION      BoneFlag = 0x0100
	BONE_FLAG_IS_EXTERNAL_TRANSLATION   BoneFlag = 0x0200
	BONE_FLAG_HAS_FIXED_AXIS            BoneFlag = 0x0400
	BONE_FLAG_HAS_LOCAL_AXIS            BoneFlag = 0x0800
	BONE_FLAG_IS_AFTER_PHYSICS_DEFORM   BoneFlag = 0x1000
	BONE_FLAG_IS_EXTERNAL_PARENT_DEFORM BoneFlag = 0x2000
)

// IkLink はIKリンクを表す。角度制限はラジアン
type IkLink struct {
	BoneIndex     int
	AngleLimit    bool
	MinAngleLimit *mmath.MVec3
	MaxAngleLimit *mmath.MVec3
}

func NewIkLink() *IkLink {
	return &IkLink{
		BoneIndex:     -1,
		MinAngleLimit: mmath.NewMVec3(),
		MaxAngleLimit: mmath.NewMVec3(),
	}
}

// Ik はIK定義を表す。UnitRotation.X に1回あたりの制限角度(ラジアン)を持つ
type Ik struct {
	BoneIndex    int
	LoopCount    int
	UnitRotation *mmath.MVec3
	Links        []*IkLink
}

func NewIk() *Ik {
	return &Ik{
		BoneIndex:    -1,
		UnitRotation: mmath.NewMVec3(),
		Links:        make([]*IkLink, 0),
	}
}

// Bone はボーンを表す。読み込み後は変更しない
type Bone struct {
	index                  int
	name                   string
	EnglishName            string
	Position               *mmath.MVec3
	ParentIndex            int
	Layer                  int
	BoneFlag               BoneFlag
	TailPosition           *mmath.MVec3
	TailIndex              int
	EffectIndex            int
	EffectFactor           float64
	FixedAxis              *mmath.MVec3
	LocalAxisX             *mmath.MVec3
	LocalAxisZ             *mmath.MVec3
	EffectorKey            int
	Ik                     *Ik
	ChildBoneIndexes       []int
	ParentBoneIndexes      []int
	ParentRelativePosition *mmath.MVec3
}

func NewBone() *Bone {
	return &Bone{
		index:                  -1,
		Position:               mmath.NewMVec3(),
		ParentIndex:            -1,
		TailPosition:           mmath.NewMVec3(),
		TailIndex:              -1,
		EffectIndex:            -1,
		FixedAxis:              mmath.NewMVec3(),
		LocalAxisX:             mmath.NewMVec3(),
		LocalAxisZ:             mmath.NewMVec3(),
		ChildBoneIndexes:       make([]int, 0),
		ParentBoneIndexes:      make([]int, 0),
		ParentRelativePosition: mmath.NewMVec3(),
		BoneFlag:               BONE_FLAG_CAN_ROTATE | BONE_FLAG_IS_VISIBLE | BONE_FLAG_CAN_MANIPULATE,
	}
}

func NewBoneByName(name string) *Bone {
	bone := NewBone()
	bone.name = name
	return bone
}

func (b *Bone) Index() int {
	return b.index
}

func (b *Bone) SetIndex(index int) {
	b.index = index
}

func (b *Bone) Name() string {
	return b.name
}

func (b *Bone) SetName(name string) {
	b.name = name
}

func (b *Bone) CanRotate() bool {
	return b.BoneFlag&BONE_FLAG_CAN_ROTATE == BONE_FLAG_CAN_ROTATE
}

func (b *Bone) CanTranslate() bool {
	return b.BoneFlag&BONE_FLAG_CAN_TRANSLATE == BONE_FLAG_CAN_TRANSLATE
}

func (b *Bone) IsVisible() bool {
	return b.BoneFlag&BONE_FLAG_IS_VISIBLE == BONE_FLAG_IS_VISIBLE
}

func (b *Bone) CanManipulate() bool {
	return b.BoneFlag&BONE_FLAG_CAN_MANIPULATE == BONE_FLAG_CAN_MANIPULATE
}

func (b *Bone) IsIK() bool {
	return b.BoneFlag&BONE_FLAG_IS_IK == BONE_FLAG_IS_IK && b.Ik != nil
}

func (b *Bone) IsTailBone() bool {
	return b.BoneFlag&BONE_FLAG_TAIL_IS_BONE == BONE_FLAG_TAIL_IS_BONE
}

func (b *Bone) IsEffectorRotation() bool {
	return b.BoneFlag&BONE_FLAG_IS_EXTERNAL_ROTATION == BONE_FLAG_IS_EXTERNAL_ROTATION
}

func (b *Bone) IsEffectorTranslation() bool {
	return b.BoneFlag&BONE_FLAG_IS_EXTERNAL_TRANSLATION == BONE_FLAG_IS_EXTERNAL_TRANSLATION
}

// HasFixedAxis は捩りボーンのように回転軸が固定されているか
func (b *Bone) HasFixedAxis() bool {
	return b.BoneFlag&BONE_FLAG_HAS_FIXED_AXIS == BONE_FLAG_HAS_FIXED_AXIS && !b.FixedAxis.IsZero()
}

func (b *Bone) HasLocalAxis() bool {
	return b.BoneFlag&BONE_FLAG_HAS_LOCAL_AXIS == BONE_FLAG_HAS_LOCAL_AXIS
}

func (b *Bone) IsExternalParentDeform() bool {
	return b.BoneFlag&BONE_FLAG_IS_EXTERNAL_PARENT_DEFORM == BONE_FLAG_IS_EXTERNAL_PARENT_DEFORM
}

// IsFinger は指ボーンか
func (b *Bone) IsFinger() bool {
	return strings.Contains(b.name, FINGER.String())
}

// IsArmLike は腕系(ローカル軸分解対象)のボーンか
func (b *Bone) IsArmLike() bool {
	for _, key := range []string{"腕", "ひじ", "手首"} {
		if strings.Contains(b.name, key) {
			return true
		}
	}
	return b.HasLocalAxis()
}

func (b *Bone) Direction() BoneDirection {
	return DirectionFromName(b.name)
}

func (b *Bone) ContainsChild(index int) bool {
	return slices.Contains(b.ChildBoneIndexes, index)
}

func (b *Bone) Copy() *Bone {
	copied := &Bone{}
	if err := deepcopy.Copy(copied, b); err != nil {
		return nil
	}
	copied.index = b.index
	copied.name = b.name
	return copied
}
