package usecase

import (
	"context"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/usecase/deform"
)

func globalMatrix(t *testing.T, model *pmx.PmxModel, motion *vmd.VmdMotion, name string, frame int) *mmath.MMat4 {
	t.Helper()
	links, err := model.Bones.CreateLinkToRoot(name)
	if err != nil {
		t.Fatalf("CreateLinkToRoot(%s) error = %v", name, err)
	}
	return deform.CalcGlobalPose(model, links, motion, frame, nil).Bones.GetByName(name).FilledGlobalMatrix()
}

func TestParentUsecase_RootRotation(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.ROOT.String(), 0, mmath.NewMQuaternionFromDegrees(0, 90, 0), &mmath.MVec3{X: 2})
	insertBone(motion, pmx.CENTER.String(), 0, mmath.NewMQuaternion(), &mmath.MVec3{Z: 1})

	result, err := NewParentUsecase().Exec(context.Background(), &domain.ParentOptions{
		CommonOptions: domain.CommonOptions{Motion: motion, Model: model},
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	if hasKeys(result, pmx.ROOT.String()) {
		t.Errorf("root keys remain")
	}

	centerBf := result.BoneFrames.Get(pmx.CENTER.String()).Get(0)
	if angle := centerBf.FilledRotation().AngleDegrees(mmath.NewMQuaternionFromDegrees(0, 90, 0)); angle > 1e-3 {
		t.Errorf("center rotation differs by %v degrees", angle)
	}

	expected := globalMatrix(t, model, motion, pmx.CENTER.String(), 0)
	actual := globalMatrix(t, model, result, pmx.CENTER.String(), 0)
	if !actual.Translation().NearEquals(expected.Translation(), 1e-5) {
		t.Errorf("center world position = %v, expected %v", actual.Translation(), expected.Translation())
	}

	// 入力は変更しない
	if !hasKeys(motion, pmx.ROOT.String()) {
		t.Errorf("input motion was modified")
	}
}

func TestParentUsecase_WorldInvariance(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.ROOT.String(), 0, mmath.NewMQuaternionFromDegrees(0, 30, 0), &mmath.MVec3{X: 1, Z: -2})
	insertBone(motion, pmx.ROOT.String(), 20, mmath.NewMQuaternionFromDegrees(10, -45, 5), &mmath.MVec3{X: -3, Y: 1})
	insertBone(motion, pmx.CENTER.String(), 10, mmath.NewMQuaternionFromDegrees(0, 0, 15), &mmath.MVec3{Y: -1})
	insertBone(motion, pmx.LEG_IK.Right(), 5, mmath.NewMQuaternionFromDegrees(20, 0, 0), &mmath.MVec3{Y: 2, Z: -1})
	insertBone(motion, pmx.LEG_IK.Left(), 15, mmath.NewMQuaternion(), &mmath.MVec3{X: 1})

	result, err := NewParentUsecase().Exec(context.Background(), &domain.ParentOptions{
		CommonOptions: domain.CommonOptions{Motion: motion, Model: model, MaxWorkers: 2},
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	tests := []struct {
		name   string
		frames []int
	}{
		{name: pmx.CENTER.String(), frames: []int{0, 10, 20}},
		{name: pmx.LEG_IK.Right(), frames: []int{0, 5, 20}},
		{name: pmx.LEG_IK.Left(), frames: []int{0, 15, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, frame := range tt.frames {
				expected := globalMatrix(t, model, motion, tt.name, frame)
				actual := globalMatrix(t, model, result, tt.name, frame)
				if !actual.Translation().NearEquals(expected.Translation(), 1e-4) {
					t.Errorf("frame %d position = %v, expected %v", frame, actual.Translation(), expected.Translation())
				}
				if angle := actual.Quaternion().AngleDegrees(expected.Quaternion()); angle > 0.01 {
					t.Errorf("frame %d rotation differs by %v degrees", frame, angle)
				}
			}
		})
	}
}

func TestParentUsecase_CenterRotation(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.CENTER.String(), 0, mmath.NewMQuaternionFromDegrees(0, 45, 0), &mmath.MVec3{X: 1})

	result, err := NewParentUsecase().Exec(context.Background(), &domain.ParentOptions{
		CommonOptions:  domain.CommonOptions{Motion: motion, Model: model},
		CenterRotation: true,
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	if rot := result.BoneFrames.Get(pmx.CENTER.String()).Get(0).FilledRotation(); !rot.IsIdent() {
		t.Errorf("center rotation remains: %v", rot)
	}

	for _, name := range []string{pmx.UPPER.String(), pmx.LOWER.String()} {
		expected := globalMatrix(t, model, motion, name, 0)
		actual := globalMatrix(t, model, result, name, 0)
		if !actual.Translation().NearEquals(expected.Translation(), 1e-4) {
			t.Errorf("%s position = %v, expected %v", name, actual.Translation(), expected.Translation())
		}
		if angle := actual.Quaternion().AngleDegrees(expected.Quaternion()); angle > 0.01 {
			t.Errorf("%s rotation differs by %v degrees", name, angle)
		}
	}
}
