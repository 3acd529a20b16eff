package usecase

import (
	"context"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
)

func TestArmTwistOffUsecase_Exec(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	axis := &mmath.MVec3{X: pmx.BONE_DIRECTION_LEFT.Sign()}
	insertBone(motion, pmx.ARM_TWIST.Left(), 0, mmath.NewMQuaternionFromAxisAnglesDegrees(axis, 20), nil)
	insertBone(motion, pmx.WRIST_TWIST.Left(), 0, mmath.NewMQuaternionFromAxisAnglesDegrees(axis, -10), nil)
	insertBone(motion, pmx.WRIST.Left(), 0, mmath.NewMQuaternionFromDegrees(0, 0, 5), nil)

	result, err := NewArmTwistOffUsecase().Exec(context.Background(), &domain.ArmTwistOffOptions{
		CommonOptions: domain.CommonOptions{Motion: motion, Model: model},
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	for _, name := range []string{pmx.ARM_TWIST.Left(), pmx.WRIST_TWIST.Left()} {
		if hasKeys(result, name) {
			t.Errorf("%s keys remain", name)
		}
	}

	arm := result.BoneFrames.Get(pmx.ARM.Left()).Get(0).FilledRotation()
	if angle := arm.AngleDegrees(mmath.NewMQuaternionFromAxisAnglesDegrees(axis, 20)); angle > 1e-3 {
		t.Errorf("arm rotation differs by %v degrees", angle)
	}

	// 手首のワールド姿勢は変わらない
	expected := globalMatrix(t, model, motion, pmx.WRIST.Left(), 0)
	actual := globalMatrix(t, model, result, pmx.WRIST.Left(), 0)
	if !actual.Translation().NearEquals(expected.Translation(), 1e-4) {
		t.Errorf("wrist position = %v, expected %v", actual.Translation(), expected.Translation())
	}
	if angle := actual.Quaternion().AngleDegrees(expected.Quaternion()); angle > 0.01 {
		t.Errorf("wrist rotation differs by %v degrees", angle)
	}
}

func TestArmTwistOffUsecase_MissingArm(t *testing.T) {
	model := pmx.NewPmxModel("")
	appendBone(model, pmx.CENTER.String(), "", mmath.NewMVec3())
	model.Setup()

	_, err := NewArmTwistOffUsecase().Exec(context.Background(), &domain.ArmTwistOffOptions{
		CommonOptions: domain.CommonOptions{Motion: vmd.NewVmdMotion(""), Model: model},
	})
	if err == nil {
		t.Fatalf("Exec() expected error")
	}
}

func TestFoldTwist(t *testing.T) {
	reference := vmd.NewVmdMotion("")
	insertBone(reference, "手捩", 0, mmath.NewMQuaternionFromDegrees(30, 0, 0), nil)
	insertBone(reference, "手首", 0, mmath.NewMQuaternionFromDegrees(0, 0, 40), nil)
	motion, _ := reference.Copy()

	foldTwist(reference, motion, "手首", "手捩", 0, true)

	expected := mmath.NewMQuaternionFromDegrees(30, 0, 0).Muled(mmath.NewMQuaternionFromDegrees(0, 0, 40))
	if angle := motion.BoneFrames.Get("手首").Get(0).FilledRotation().AngleDegrees(expected); angle > 1e-3 {
		t.Errorf("folded rotation differs by %v degrees", angle)
	}
}
