package deform

import (
	"github.com/miu200521358/motion_supporter/pkg/domain/delta"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
)

// 付与親を辿る最大段数
const maxEffectDepth = 10

// CalcGlobalPose は links の各ボーンの frame 時点のワールド行列を求める。
// limit を指定した場合、limit に含まれないボーンはモーションを反映せず初期姿勢のまま扱う
func CalcGlobalPose(
	model *pmx.PmxModel, links *pmx.BoneLinks, motion *vmd.VmdMotion, frame int, limit *pmx.BoneLinks,
) *delta.VmdDeltas {
	deltas := delta.NewVmdDeltas(frame, model.Bones)

	for _, bone := range links.Bones() {
		bd := delta.NewBoneDelta(bone, frame)

		if limit == nil || limit.Contains(bone.Name()) {
			bd.FrameRotation = calcRotation(model, motion, bone, frame, 0)
			bd.FramePosition = calcPosition(model, motion, bone, frame, 0)
		} else {
			bd.FrameRotation = mmath.NewMQuaternion()
			bd.FramePosition = mmath.NewMVec3()
		}

		// 親からの相対位置 → 移動 → 回転
		bd.LocalMatrix = mmath.NewMMat4ByTranslate(bone.ParentRelativePosition.Added(bd.FramePosition))
		bd.LocalMatrix.Rotate(bd.FrameRotation)

		bd.GlobalMatrix = parentGlobalMatrix(model, deltas, bone).Muled(bd.LocalMatrix)
		deltas.Bones.Update(bd)
	}

	return deltas
}

func parentGlobalMatrix(model *pmx.PmxModel, deltas *delta.VmdDeltas, bone *pmx.Bone) *mmath.MMat4 {
	if parentDelta := deltas.Bones.Get(bone.ParentIndex); parentDelta != nil {
		return parentDelta.FilledGlobalMatrix()
	}
	if parent, err := model.Bones.Get(bone.ParentIndex); err == nil {
		// リンク外の親は初期姿勢
		return mmath.NewMMat4ByTranslate(parent.Position)
	}
	return mmath.NewMMat4()
}

func calcRotation(model *pmx.PmxModel, motion *vmd.VmdMotion, bone *pmx.Bone, frame, depth int) *mmath.MQuaternion {
	rot := motion.BoneFrames.Get(bone.Name()).Get(frame).FilledRotation().Copy()

	if bone.IsEffectorRotation() && depth < maxEffectDepth {
		if effectBone, err := model.Bones.Get(bone.EffectIndex); err == nil && effectBone.Index() != bone.Index() {
			effectRot := calcRotation(model, motion, effectBone, frame, depth+1)
			rot = rot.Muled(mmath.NewMQuaternion().Slerp(effectRot, bone.EffectFactor))
		}
	}

	return rot
}

func calcPosition(model *pmx.PmxModel, motion *vmd.VmdMotion, bone *pmx.Bone, frame, depth int) *mmath.MVec3 {
	pos := motion.BoneFrames.Get(bone.Name()).Get(frame).FilledPosition().Copy()

	if bone.IsEffectorTranslation() && depth < maxEffectDepth {
		if effectBone, err := model.Bones.Get(bone.EffectIndex); err == nil && effectBone.Index() != bone.Index() {
			effectPos := calcPosition(model, motion, effectBone, frame, depth+1)
			pos.Add(effectPos.MuledScalar(bone.EffectFactor))
		}
	}

	return pos
}

// CalcGlobalPosition は boneName の frame 時点のワールド座標
func CalcGlobalPosition(
	model *pmx.PmxModel, motion *vmd.VmdMotion, boneName string, frame int,
) (*mmath.MVec3, error) {
	links, err := model.Bones.CreateLinkToRoot(boneName)
	if err != nil {
		return nil, err
	}
	return CalcGlobalPose(model, links, motion, frame, nil).Bones.GetByName(boneName).FilledGlobalPosition(), nil
}
