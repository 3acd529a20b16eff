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

// 腕IKの1フレームあたりの最大試行回数(未指定時)
const arm_ik_max_count = 50

// ArmIkToFkUsecase は腕IKの動きを腕・ひじ・手首のFK回転に焼き込む
type ArmIkToFkUsecase struct {
	Policy deform.IkPolicy
}

func NewArmIkToFkUsecase() *ArmIkToFkUsecase {
	return &ArmIkToFkUsecase{Policy: deform.DefaultIkPolicy()}
}

// armIkTarget は1本の腕IKの変換対象
type armIkTarget struct {
	ikBone     *pmx.Bone
	ik         *pmx.Ik
	effector   *pmx.Bone
	transferee *pmx.Bone
	linkNames  []string
	twists     []armTwist
}

// armTwist は捩りボーンと、その回転を受け取るボーン
type armTwist struct {
	twistName string
	boneName  string
	isChild   bool
}

func (u *ArmIkToFkUsecase) Exec(ctx context.Context, options *domain.ArmIkToFkOptions) (*vmd.VmdMotion, error) {
	model := options.Model

	targets := make([]*armIkTarget, 0, 4)
	for _, name := range pmx.ArmIkBoneNames() {
		ikBone, err := model.Bones.GetByName(name)
		if err != nil || ikBone.Ik == nil {
			continue
		}
		target, err := u.newTarget(model, ikBone)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}

	motion, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		mlog.W("%s", mi18n.T("腕IKなし"))
		return motion, nil
	}

	reference, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}

	tasks := make([]miter.Task, 0, len(targets))
	names := make([]string, 0)
	pruneNames := make([]string, 0)
	for _, target := range targets {
		target := target
		names = append(names, target.linkNames...)
		names = append(names, target.effector.Name())
		pruneNames = append(pruneNames, target.linkNames...)
		pruneNames = append(pruneNames, target.effector.Name())
		tasks = append(tasks, func(ctx context.Context) error {
			defer options.FilledMonitor().Increment()
			return u.convert(ctx, options, reference, motion, target)
		})
	}

	workers := workerCount(options)
	if hasDuplicateNames(names) {
		// 同じ腕を動かすIKが複数ある場合は順番に処理する
		workers = 1
	}

	options.FilledMonitor().AddTotal(len(tasks))
	if err := miter.RunTasks(ctx, workers, tasks); err != nil {
		return nil, err
	}

	if err := removeUnnecessaryBones(ctx, options, motion, mmath.UniqueSorted(pruneNames)); err != nil {
		return nil, err
	}

	return motion, nil
}

func (u *ArmIkToFkUsecase) newTarget(model *pmx.PmxModel, ikBone *pmx.Bone) (*armIkTarget, error) {
	ik, err := deform.NewIkChain(model, ikBone)
	if err != nil {
		return nil, err
	}
	effector, err := model.Bones.Get(ik.BoneIndex)
	if err != nil {
		return nil, err
	}

	target := &armIkTarget{
		ikBone:     ikBone,
		ik:         ik,
		effector:   effector,
		transferee: u.transferee(model, ikBone, effector),
	}
	for _, link := range ik.Links {
		linkBone, _ := model.Bones.Get(link.BoneIndex)
		target.linkNames = append(target.linkNames, linkBone.Name())
	}

	// 腕捩は親(腕)に、手捩は子(手首)に合成する
	direction := ikBone.Direction()
	for _, link := range ikBone.Ik.Links {
		linkBone, err := model.Bones.Get(link.BoneIndex)
		if err != nil || !linkBone.HasFixedAxis() {
			continue
		}
		if parent, err := model.Bones.Get(linkBone.ParentIndex); err == nil {
			target.twists = append(target.twists, armTwist{twistName: linkBone.Name(), boneName: parent.Name()})
		}
	}
	wristTwistName := pmx.WRIST_TWIST.StringFromDirection(direction)
	wristName := pmx.WRIST.StringFromDirection(direction)
	if model.Bones.ContainsByName(wristTwistName) && model.Bones.ContainsByName(wristName) {
		target.twists = append(target.twists, armTwist{twistName: wristTwistName, boneName: wristName, isChild: true})
	}

	return target, nil
}

// transferee は回転の移管先。エフェクタが非表示なら、IKボーンの子で同じ位置にあるボーン
func (u *ArmIkToFkUsecase) transferee(model *pmx.PmxModel, ikBone, effector *pmx.Bone) *pmx.Bone {
	if effector.IsVisible() {
		return effector
	}
	for _, childIndex := range ikBone.ChildBoneIndexes {
		child, err := model.Bones.Get(childIndex)
		if err == nil && child.Position.NearEquals(effector.Position, 1e-4) {
			return child
		}
	}
	return effector
}

func (u *ArmIkToFkUsecase) convert(
	ctx context.Context, options *domain.ArmIkToFkOptions, reference, motion *vmd.VmdMotion, target *armIkTarget,
) error {
	model := options.Model
	ikName := target.ikBone.Name()
	effectorName := target.effector.Name()

	mlog.I("%s", mi18n.T("腕IK変換開始", map[string]interface{}{"BoneName": ikName}))

	twistNames := make([]string, 0, len(target.twists))
	for _, twist := range target.twists {
		twistNames = append(twistNames, twist.twistName)
	}

	keyNames := append([]string{ikName, effectorName}, target.linkNames...)
	keyNames = append(keyNames, twistNames...)
	keyFrames := reference.BoneFrames.IndexList(keyNames)
	if len(keyFrames) == 0 {
		mlog.W("%s", mi18n.T("腕IKキーなし", map[string]interface{}{"BoneName": ikName}))
		motion.BoneFrames.Delete(ikName)
		return nil
	}
	frames := mmath.IntRangesByStep(keyFrames[0], keyFrames[len(keyFrames)-1], 1)

	ikLinks, err := model.Bones.CreateLinkToRoot(ikName)
	if err != nil {
		return err
	}
	effectorLinks, err := model.Bones.CreateLinkToRoot(effectorName)
	if err != nil {
		return err
	}
	correctsEffector := target.transferee.Name() != effectorName
	var transfereeLinks *pmx.BoneLinks
	if correctsEffector {
		if transfereeLinks, err = model.Bones.CreateLinkToRoot(target.transferee.Name()); err != nil {
			return err
		}
	}

	// 焼き込み前のIKボーン位置と移管先の向き
	ikPositions := make([]*mmath.MVec3, len(frames))
	transfereeRotations := make([]*mmath.MQuaternion, len(frames))
	blockSize, _ := miter.GetBlockSize(len(frames))
	if err := miter.IterParallelByList(frames, blockSize, log_block_size,
		func(index, frame int) error {
			if err := miter.CheckTerminate(ctx); err != nil {
				return err
			}
			ikPositions[index] = deform.CalcGlobalPose(model, ikLinks, reference, frame, nil).
				Bones.GetByName(ikName).FilledGlobalPosition()
			if correctsEffector {
				transfereeRotations[index] = deform.CalcGlobalPose(model, transfereeLinks, reference, frame, nil).
					Bones.GetByName(target.transferee.Name()).FilledGlobalRotation()
			}
			return nil
		},
		func(iterIndex, allCount int) {
			processLog("腕IK準備", iterIndex, allCount)
		}); err != nil {
		return err
	}

	// 全フレーム登録して捩りを合成する
	bakeNames := append([]string{effectorName}, target.linkNames...)
	registerFrames(motion, bakeNames, frames)
	for _, frame := range frames {
		for _, twist := range target.twists {
			foldTwist(reference, motion, twist.boneName, twist.twistName, frame, twist.isChild)
		}
	}
	for _, name := range twistNames {
		motion.BoneFrames.Delete(name)
	}
	motion.BoneFrames.Delete(ikName)

	maxCount := options.IkMaxCount
	if maxCount <= 0 {
		maxCount = arm_ik_max_count
	}

	unconverged := 0
	for i, frame := range frames {
		if i%log_block_size == 0 {
			if err := miter.CheckTerminate(ctx); err != nil {
				return err
			}
			processLog("腕IK変換", i, len(frames))
		}

		result, err := deform.SolveIk(model, effectorLinks, motion, frame, ikPositions[i], target.ik, maxCount, u.Policy)
		if err != nil {
			return err
		}
		if !result.Converged {
			unconverged++
			mlog.V("腕IK未収束 %s f=%d distance=%.5f", ikName, frame, result.BestDistance)
		}

		if correctsEffector {
			// FKで求まった親から見て、移管先の元の向きになるようにエフェクタを回す
			parentRot := mmath.NewMQuaternion()
			if parent, err := model.Bones.Get(target.effector.ParentIndex); err == nil {
				parentRot = deform.CalcGlobalPose(model, effectorLinks, motion, frame, nil).
					Bones.GetByName(parent.Name()).FilledGlobalRotation()
			}
			bf := motion.BoneFrames.Get(effectorName).Get(frame)
			bf.Rotation = parentRot.Inverted().Muled(transfereeRotations[i]).Normalized()
			motion.InsertBoneFrame(effectorName, bf)
		}
	}

	if unconverged > 0 {
		mlog.W("%s", mi18n.T("腕IK未収束", map[string]interface{}{"BoneName": ikName, "Count": unconverged}))
	}

	return nil
}
