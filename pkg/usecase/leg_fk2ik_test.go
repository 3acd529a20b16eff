package usecase

import (
	"context"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
)

func TestLegFkToIkUsecase_CenterOnly(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.CENTER.String(), 0, mmath.NewMQuaternion(), mmath.NewMVec3())
	insertBone(motion, pmx.CENTER.String(), 10, mmath.NewMQuaternion(), &mmath.MVec3{Y: 5})

	result, err := NewLegFkToIkUsecase().Exec(context.Background(), &domain.LegFkToIkOptions{
		CommonOptions: domain.CommonOptions{Motion: motion, Model: model},
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	for _, direction := range pmx.BONE_DIRECTIONS {
		legIkName := pmx.LEG_IK.StringFromDirection(direction)
		bnf := result.BoneFrames.Get(legIkName)
		if bnf.Len() != 2 {
			t.Fatalf("%s keys = %v", legIkName, bnf.IndexList())
		}

		tests := []struct {
			frame    int
			expected *mmath.MVec3
		}{
			{frame: 0, expected: mmath.NewMVec3()},
			{frame: 10, expected: &mmath.MVec3{Y: 5}},
		}
		for _, tt := range tests {
			bf := bnf.Get(tt.frame)
			if !bf.FilledPosition().NearEquals(tt.expected, 1e-4) {
				t.Errorf("%s frame %d position = %v, expected %v", legIkName, tt.frame, bf.FilledPosition(), tt.expected)
			}
			if angle := bf.FilledRotation().AngleDegrees(mmath.NewMQuaternion()); angle > 0.01 {
				t.Errorf("%s frame %d rotation = %v degrees", legIkName, tt.frame, angle)
			}
		}
	}
}

func TestLegFkToIkUsecase_KneeBend(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	legName := pmx.LEG.Right()
	kneeName := pmx.KNEE.Right()
	insertBone(motion, legName, 0, mmath.NewMQuaternionFromDegrees(-30, 0, 0), nil)
	insertBone(motion, kneeName, 0, mmath.NewMQuaternionFromDegrees(60, 0, 0), nil)

	result, err := NewLegFkToIkUsecase().Exec(context.Background(), &domain.LegFkToIkOptions{
		CommonOptions: domain.CommonOptions{Motion: motion, Model: model},
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	// 足IKを置いた位置が足首のワールド位置と一致する
	ankle := globalMatrix(t, model, motion, pmx.ANKLE.Right(), 0).Translation()
	legIk := globalMatrix(t, model, result, pmx.LEG_IK.Right(), 0).Translation()
	if !legIk.NearEquals(ankle, 1e-4) {
		t.Errorf("leg IK = %v, ankle = %v", legIk, ankle)
	}

	// つま先の向きも足IKの回転で再現される
	toeIk, _ := model.Bones.GetByName(pmx.TOE_IK.Right())
	legIkBone, _ := model.Bones.GetByName(pmx.LEG_IK.Right())
	toe := globalMatrix(t, model, motion, pmx.TOE.Right(), 0).Translation()
	toeByIk := globalMatrix(t, model, result, pmx.LEG_IK.Right(), 0).MulVec3(toeIk.Position.Subed(legIkBone.Position))
	if !toeByIk.NearEquals(toe, 1e-3) {
		t.Errorf("toe by IK = %v, toe = %v", toeByIk, toe)
	}
}

func TestLegFkToIkUsecase_EnableIk(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.CENTER.String(), 0, mmath.NewMQuaternion(), mmath.NewMVec3())

	kf := vmd.NewIkFrame(0)
	kf.IkList = append(kf.IkList,
		vmd.NewIkEnableFrame(pmx.LEG_IK.Right(), false),
		vmd.NewIkEnableFrame(pmx.TOE_IK.Left(), false),
		vmd.NewIkEnableFrame("髪IK", false),
	)
	motion.AppendIkFrame(kf)

	result, err := NewLegFkToIkUsecase().Exec(context.Background(), &domain.LegFkToIkOptions{
		CommonOptions: domain.CommonOptions{Motion: motion, Model: model},
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	expected := map[string]bool{pmx.LEG_IK.Right(): true, pmx.TOE_IK.Left(): true, "髪IK": false}
	for _, ik := range result.IkFrames.Values()[0].IkList {
		if ik.Enabled != expected[ik.BoneName] {
			t.Errorf("%s enabled = %v", ik.BoneName, ik.Enabled)
		}
	}
	// 入力側はそのまま
	if motion.IkFrames.Values()[0].IkList[0].Enabled {
		t.Errorf("input IK frame was modified")
	}
}

func TestLegFkToIkUsecase_GroundGlobalMin(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.CENTER.String(), 0, mmath.NewMQuaternion(), &mmath.MVec3{Y: -2})
	insertBone(motion, pmx.CENTER.String(), 10, mmath.NewMQuaternion(), mmath.NewMVec3())

	result, err := NewLegFkToIkUsecase().Exec(context.Background(), &domain.LegFkToIkOptions{
		CommonOptions: domain.CommonOptions{Motion: motion, Model: model},
		GroundMode:    domain.GROUND_GLOBAL_MIN,
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	center := result.BoneFrames.Get(pmx.CENTER.String())
	if got := center.Get(0).FilledPosition().Y; !mmath.NearEquals(got, 0, 1e-4) {
		t.Errorf("center frame 0 Y = %v", got)
	}
	if got := center.Get(10).FilledPosition().Y; !mmath.NearEquals(got, 2, 1e-4) {
		t.Errorf("center frame 10 Y = %v", got)
	}
	if got := result.BoneFrames.Get(pmx.LEG_IK.Left()).Get(0).FilledPosition().Y; !mmath.NearEquals(got, 0, 1e-4) {
		t.Errorf("leg IK frame 0 Y = %v", got)
	}
}

func TestLegFkToIkUsecase_GroundNone(t *testing.T) {
	model := newHumanModel()
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.CENTER.String(), 0, mmath.NewMQuaternion(), &mmath.MVec3{Y: -2})

	result, err := NewLegFkToIkUsecase().Exec(context.Background(), &domain.LegFkToIkOptions{
		CommonOptions: domain.CommonOptions{Motion: motion, Model: model},
		GroundMode:    domain.GROUND_NONE,
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if got := result.BoneFrames.Get(pmx.CENTER.String()).Get(0).FilledPosition().Y; !mmath.NearEquals(got, -2, 1e-6) {
		t.Errorf("center Y = %v", got)
	}
}

func TestLegFkToIkUsecase_LockJitter(t *testing.T) {
	motion := vmd.NewVmdMotion("")
	legIkName := pmx.LEG_IK.Right()
	insertBone(motion, legIkName, 0, mmath.NewMQuaternion(), &mmath.MVec3{X: 0, Y: 0.1})
	insertBone(motion, legIkName, 1, mmath.NewMQuaternion(), &mmath.MVec3{X: 0.1, Y: 0.2})
	insertBone(motion, legIkName, 2, mmath.NewMQuaternion(), &mmath.MVec3{X: 0.2, Y: 0})
	insertBone(motion, legIkName, 3, mmath.NewMQuaternion(), &mmath.MVec3{X: 0.3, Y: 0.1})
	insertBone(motion, legIkName, 10, mmath.NewMQuaternion(), &mmath.MVec3{X: 0.3, Y: 5})

	options := &domain.LegFkToIkOptions{JitterLock: true}
	NewLegFkToIkUsecase().lockJitter(options, motion, pmx.BONE_DIRECTION_RIGHT)

	bnf := motion.BoneFrames.Get(legIkName)
	start := &mmath.MVec3{X: 0, Y: 0.1}
	for _, frame := range []int{1, 2, 3} {
		if got := bnf.Get(frame).FilledPosition(); !got.NearEquals(start, 1e-6) {
			t.Errorf("frame %d position = %v", frame, got)
		}
	}
	if got := bnf.Get(10).FilledPosition(); !got.NearEquals(&mmath.MVec3{X: 0.3, Y: 5}, 1e-6) {
		t.Errorf("frame 10 position = %v", got)
	}
}

func TestLegFkToIkUsecase_LockToeJitter(t *testing.T) {
	legIkName := pmx.LEG_IK.Right()
	motion := vmd.NewVmdMotion("")
	for frame, pos := range map[int]*mmath.MVec3{
		0:  mmath.NewMVec3(),
		1:  {X: 0.05, Z: 0.02},
		2:  {X: -0.03},
		3:  {X: 0.04, Y: 0.02},
		10: {Y: 3},
	} {
		insertBone(motion, legIkName, frame, mmath.NewMQuaternion(), pos)
	}

	// つま先は0-3フレームでほぼ止まっている
	bake := &legIkBake{
		legIkName:      legIkName,
		frames:         []int{0, 1, 2, 3, 10},
		parentMatrices: []*mmath.MMat4{mmath.NewMMat4(), mmath.NewMMat4(), mmath.NewMMat4(), mmath.NewMMat4(), mmath.NewMMat4()},
		toePositions: []*mmath.MVec3{
			{X: -1, Z: -1},
			{X: -1.02, Y: 0.01, Z: -1},
			{X: -0.98, Z: -1.03},
			{X: -1, Y: 0.02, Z: -0.99},
			{X: -1, Y: 3, Z: -1},
		},
		toeInitial: &mmath.MVec3{Y: -1, Z: -1},
		offset:     &mmath.MVec3{X: -1, Y: 1},
	}

	NewLegFkToIkUsecase().lockToeJitter(&domain.LegFkToIkOptions{JitterLock: true}, motion, bake)

	bnf := motion.BoneFrames.Get(legIkName)
	pinned := mmath.NewMVec3()
	for i, frame := range bake.frames[:4] {
		bf := bnf.Get(frame)
		if !bf.FilledPosition().NearEquals(pinned, 1e-6) {
			t.Errorf("frame %d position = %v", frame, bf.FilledPosition())
		}
		if frame == 0 {
			continue
		}
		// 固定した位置から見たつま先の向きを回転で再現する
		toeLocal := bake.toePositions[i].Subed(bake.offset.Added(pinned)).Normalized()
		toeByIk := bf.FilledRotation().MulVec3(bake.toeInitial).Normalized()
		if !toeByIk.NearEquals(toeLocal, 1e-6) {
			t.Errorf("frame %d toe = %v, expected %v", frame, toeByIk, toeLocal)
		}
	}

	if got := bnf.Get(10).FilledPosition(); !got.NearEquals(&mmath.MVec3{Y: 3}, 1e-6) {
		t.Errorf("frame 10 position = %v", got)
	}
	if angle := bnf.Get(10).FilledRotation().AngleDegrees(mmath.NewMQuaternion()); angle > 1e-4 {
		t.Errorf("frame 10 rotation = %v degrees", angle)
	}
}

func TestLegFkToIkUsecase_MissingBone(t *testing.T) {
	model := pmx.NewPmxModel("")
	appendBone(model, pmx.CENTER.String(), "", mmath.NewMVec3())
	model.Setup()

	_, err := NewLegFkToIkUsecase().Exec(context.Background(), &domain.LegFkToIkOptions{
		CommonOptions: domain.CommonOptions{Motion: vmd.NewVmdMotion(""), Model: model},
	})
	if err == nil {
		t.Fatalf("Exec() expected error")
	}
}
