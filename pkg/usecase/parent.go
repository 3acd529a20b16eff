package usecase

import (
	"context"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
	"github.com/miu200521358/motion_supporter/pkg/usecase/deform"
)

// ParentUsecase は全ての親・センター親・足IK親の動きをセンターと足IKに移植する
type ParentUsecase struct{}

func NewParentUsecase() *ParentUsecase {
	return &ParentUsecase{}
}

func (u *ParentUsecase) Exec(ctx context.Context, options *domain.ParentOptions) (*vmd.VmdMotion, error) {
	model := options.Model

	if err := domain.CheckBones(model, "全ての親移植",
		[]domain.CheckTrunkBoneType{
			{BoneName: pmx.ROOT, IsStandard: true},
			{BoneName: pmx.CENTER, IsStandard: true},
			{BoneName: pmx.CENTER_PARENT, IsStandard: false},
		},
		[]domain.CheckDirectionBoneType{
			{BoneName: pmx.LEG_IK, IsStandard: false},
			{BoneName: pmx.LEG_IK_PARENT, IsStandard: false},
		},
	); err != nil {
		return nil, err
	}

	motion, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}

	// 親を移植した後のモーションでは消えるボーン
	helperNames := []string{pmx.ROOT.String(), pmx.CENTER_PARENT.String()}
	for _, direction := range pmx.BONE_DIRECTIONS {
		helperNames = append(helperNames, pmx.LEG_IK_PARENT.StringFromDirection(direction))
	}

	// センター → 足IK の順で、どちらも移植前のモーションから計算する
	reference, err := motion.Copy()
	if err != nil {
		return nil, err
	}

	targetNames := []string{pmx.CENTER.String()}
	for _, direction := range pmx.BONE_DIRECTIONS {
		if model.Bones.ContainsByName(pmx.LEG_IK.StringFromDirection(direction)) {
			targetNames = append(targetNames, pmx.LEG_IK.StringFromDirection(direction))
		}
	}

	for _, targetName := range targetNames {
		if err := miter.CheckTerminate(ctx); err != nil {
			return nil, err
		}
		mlog.I("%s", mi18n.T("親移植", map[string]interface{}{"BoneName": targetName}))
		if err := transferParent(ctx, options, model, reference, motion, targetName, helperNames); err != nil {
			return nil, err
		}
	}

	for _, name := range helperNames {
		motion.BoneFrames.Delete(name)
	}

	if options.CenterRotation {
		if err := transferCenterRotation(ctx, options, model, motion); err != nil {
			return nil, err
		}
	}

	pruneNames := append([]string{pmx.UPPER.String(), pmx.LOWER.String(), pmx.WAIST.String()}, targetNames...)
	if err := removeUnnecessaryBones(ctx, options, motion, pruneNames); err != nil {
		return nil, err
	}

	return motion, nil
}

// transferParent は targetName の親側にある helperNames の動きを targetName のキーに焼き込む。
// ワールド行列が移植前と一致するよう、ヘルパーを初期姿勢にした親の行列からローカル値を逆算する
func transferParent(
	ctx context.Context, options *domain.ParentOptions, model *pmx.PmxModel,
	reference, motion *vmd.VmdMotion, targetName string, helperNames []string,
) error {
	bone, err := model.Bones.GetByName(targetName)
	if err != nil {
		return err
	}
	links, err := model.Bones.CreateLinkToRoot(targetName)
	if err != nil {
		return err
	}

	boneNames := []string{targetName}
	for _, name := range helperNames {
		if links.Contains(name) {
			boneNames = append(boneNames, name)
		}
	}
	frames := reference.BoneFrames.IndexList(boneNames)
	if len(frames) == 0 {
		return nil
	}

	// ヘルパーの動きを除いたモーション
	cleared, err := reference.Copy()
	if err != nil {
		return err
	}
	for _, name := range helperNames {
		cleared.BoneFrames.Delete(name)
	}

	rotations := make([]*mmath.MQuaternion, len(frames))
	positions := make([]*mmath.MVec3, len(frames))

	options.FilledMonitor().AddTotal(len(frames))
	blockSize, _ := miter.GetBlockSize(len(frames))
	if err := miter.IterParallelByList(frames, blockSize, log_block_size,
		func(index, frame int) error {
			if err := miter.CheckTerminate(ctx); err != nil {
				return err
			}

			globalMatrix := deform.CalcGlobalPose(model, links, reference, frame, nil).
				Bones.GetByName(targetName).FilledGlobalMatrix()

			parentMatrix := mmath.NewMMat4()
			if parent, err := model.Bones.Get(bone.ParentIndex); err == nil {
				parentMatrix = deform.CalcGlobalPose(model, links, cleared, frame, nil).
					Bones.GetByName(parent.Name()).FilledGlobalMatrix()
			}

			localMatrix := parentMatrix.Inverted().Muled(globalMatrix)
			rotations[index] = localMatrix.Quaternion().Normalized()
			positions[index] = localMatrix.Translation().Subed(bone.ParentRelativePosition)

			options.FilledMonitor().Increment()
			return nil
		},
		func(iterIndex, allCount int) {
			processLog("親移植", iterIndex, allCount)
		}); err != nil {
		return err
	}

	for i, frame := range frames {
		bf := motion.BoneFrames.Get(targetName).Get(frame)
		bf.Rotation = rotations[i]
		bf.Position = positions[i]
		motion.InsertBoneFrame(targetName, bf)
	}

	return nil
}

// transferCenterRotation はセンターと腰の回転を上半身・下半身に移し、
// 下半身のワールド位置が変わらないようセンターの位置を補正する
func transferCenterRotation(
	ctx context.Context, options *domain.ParentOptions, model *pmx.PmxModel, motion *vmd.VmdMotion,
) error {
	if err := domain.CheckBones(model, "センター回転移植",
		[]domain.CheckTrunkBoneType{
			{BoneName: pmx.UPPER, IsStandard: true},
			{BoneName: pmx.LOWER, IsStandard: true},
		}, nil); err != nil {
		return err
	}

	centerName := pmx.CENTER.String()
	waistName := pmx.WAIST.String()
	hasWaist := model.Bones.ContainsByName(waistName)

	reference, err := motion.Copy()
	if err != nil {
		return err
	}

	boneNames := []string{centerName, pmx.UPPER.String(), pmx.LOWER.String()}
	if hasWaist {
		boneNames = append(boneNames, waistName)
	}
	frames := reference.BoneFrames.IndexList(boneNames)
	if len(frames) == 0 {
		return nil
	}

	lowerName := pmx.LOWER.String()
	lower, _ := model.Bones.GetByName(lowerName)
	lowerLinks, err := model.Bones.CreateLinkToRoot(lowerName)
	if err != nil {
		return err
	}
	centerLinks, err := model.Bones.CreateLinkToRoot(centerName)
	if err != nil {
		return err
	}

	mlog.I("%s", mi18n.T("センター回転移植"))

	for i, frame := range frames {
		if err := miter.CheckTerminate(ctx); err != nil {
			return err
		}

		centerBf := reference.BoneFrames.Get(centerName).Get(frame)
		rot := centerBf.FilledRotation().Copy()
		if hasWaist {
			rot = rot.Muled(reference.BoneFrames.Get(waistName).Get(frame).FilledRotation())
		}

		for _, name := range []string{pmx.UPPER.String(), lowerName} {
			bf := motion.BoneFrames.Get(name).Get(frame)
			bf.Rotation = rot.Muled(reference.BoneFrames.Get(name).Get(frame).FilledRotation())
			motion.InsertBoneFrame(name, bf)
		}

		if hasWaist {
			bf := motion.BoneFrames.Get(waistName).Get(frame)
			bf.Rotation = mmath.NewMQuaternion()
			motion.InsertBoneFrame(waistName, bf)
		}

		// センター系だけ動かした時の下半身の位置
		lowerPos := deform.CalcGlobalPose(model, lowerLinks, reference, frame, centerLinks).
			Bones.GetByName(lowerName).FilledGlobalPosition()

		bf := motion.BoneFrames.Get(centerName).Get(frame)
		bf.Rotation = mmath.NewMQuaternion()
		bf.Position = lowerPos.Subed(lower.Position)
		motion.InsertBoneFrame(centerName, bf)

		if i%log_block_size == 0 {
			processLog("センター回転移植", i, len(frames))
		}
	}

	return nil
}
