package usecase

import (
	"context"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
)

// ArmTwistOffUsecase は腕捩・手捩の回転を腕・手首に移して捩りボーンを消す
type ArmTwistOffUsecase struct{}

func NewArmTwistOffUsecase() *ArmTwistOffUsecase {
	return &ArmTwistOffUsecase{}
}

func (u *ArmTwistOffUsecase) Exec(ctx context.Context, options *domain.ArmTwistOffOptions) (*vmd.VmdMotion, error) {
	if err := domain.CheckBones(options.Model, "捩りOFF", nil,
		[]domain.CheckDirectionBoneType{
			{BoneName: pmx.ARM, IsStandard: true},
			{BoneName: pmx.ARM_TWIST, IsStandard: false},
			{BoneName: pmx.ELBOW, IsStandard: true},
			{BoneName: pmx.WRIST_TWIST, IsStandard: false},
			{BoneName: pmx.WRIST, IsStandard: true},
		}); err != nil {
		return nil, err
	}

	motion, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}
	reference, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}

	options.FilledMonitor().AddTotal(len(pmx.BONE_DIRECTIONS))
	if err := miter.RunTasks(ctx, workerCount(options), directionTasks(
		func(ctx context.Context, direction pmx.BoneDirection) error {
			defer options.FilledMonitor().Increment()
			return u.twistOff(ctx, reference, motion, direction)
		})); err != nil {
		return nil, err
	}

	pruneNames := make([]string, 0, 6)
	for _, direction := range pmx.BONE_DIRECTIONS {
		pruneNames = append(pruneNames,
			pmx.ARM.StringFromDirection(direction),
			pmx.ELBOW.StringFromDirection(direction),
			pmx.WRIST.StringFromDirection(direction))
	}
	if err := removeUnnecessaryBones(ctx, options, motion, pruneNames); err != nil {
		return nil, err
	}

	return motion, nil
}

func (u *ArmTwistOffUsecase) twistOff(
	ctx context.Context, reference, motion *vmd.VmdMotion, direction pmx.BoneDirection,
) error {
	armName := pmx.ARM.StringFromDirection(direction)
	armTwistName := pmx.ARM_TWIST.StringFromDirection(direction)
	elbowName := pmx.ELBOW.StringFromDirection(direction)
	wristTwistName := pmx.WRIST_TWIST.StringFromDirection(direction)
	wristName := pmx.WRIST.StringFromDirection(direction)

	mlog.I("%s", mi18n.T("捩りOFF開始", map[string]interface{}{"Direction": direction.String()}))

	frames := reference.GetDifferFrames(
		[]string{armName, armTwistName, elbowName, wristTwistName, wristName}, differ_degrees, differ_length)

	registerFrames(motion, []string{armName, elbowName, wristName}, frames)

	for i, frame := range frames {
		if i%log_block_size == 0 {
			if err := miter.CheckTerminate(ctx); err != nil {
				return err
			}
			processLog("捩りOFF", i, len(frames))
		}
		foldTwist(reference, motion, armName, armTwistName, frame, false)
		foldTwist(reference, motion, wristName, wristTwistName, frame, true)
	}

	motion.BoneFrames.Delete(armTwistName)
	motion.BoneFrames.Delete(wristTwistName)

	return nil
}

// foldTwist は捩りボーンの回転を隣接するボーンに合成する。
// isChild の場合 twist は bone の親(手捩→手首)、そうでなければ子(腕→腕捩)
func foldTwist(reference, motion *vmd.VmdMotion, boneName, twistName string, frame int, isChild bool) {
	twistRot := reference.BoneFrames.Get(twistName).Get(frame).FilledRotation()
	boneRot := reference.BoneFrames.Get(boneName).Get(frame).FilledRotation()

	bf := motion.BoneFrames.Get(boneName).Get(frame)
	if isChild {
		bf.Rotation = twistRot.Muled(boneRot).Normalized()
	} else {
		bf.Rotation = boneRot.Muled(twistRot).Normalized()
	}
	motion.InsertBoneFrame(boneName, bf)
}
