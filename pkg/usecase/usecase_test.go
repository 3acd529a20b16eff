package usecase

import (
	"context"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
)

func appendBone(model *pmx.PmxModel, name string, parentName string, pos *mmath.MVec3) *pmx.Bone {
	bone := pmx.NewBoneByName(name)
	bone.Position = pos
	if parent, err := model.Bones.GetByName(parentName); err == nil {
		bone.ParentIndex = parent.Index()
	}
	model.Bones.Append(bone)
	return bone
}

func appendIk(model *pmx.PmxModel, ikBone *pmx.Bone, targetName string, linkNames ...string) {
	target, _ := model.Bones.GetByName(targetName)
	ikBone.BoneFlag |= pmx.BONE_FLAG_IS_IK | pmx.BONE_FLAG_CAN_TRANSLATE
	ikBone.Ik = pmx.NewIk()
	ikBone.Ik.BoneIndex = target.Index()
	ikBone.Ik.LoopCount = 40
	ikBone.Ik.UnitRotation = &mmath.MVec3{X: 1}
	for _, name := range linkNames {
		linkBone, _ := model.Bones.GetByName(name)
		link := pmx.NewIkLink()
		link.BoneIndex = linkBone.Index()
		ikBone.Ik.Links = append(ikBone.Ik.Links, link)
	}
}

func appendTwist(model *pmx.PmxModel, name string, parentName string, pos *mmath.MVec3, axis *mmath.MVec3) {
	bone := appendBone(model, name, parentName, pos)
	bone.BoneFlag |= pmx.BONE_FLAG_HAS_FIXED_AXIS
	bone.FixedAxis = axis.Normalized()
}

// newHumanModel は体幹・両脚(足IK・つま先IK付き)・両腕(捩り付き)の最小モデル
func newHumanModel() *pmx.PmxModel {
	model := pmx.NewPmxModel("human.pmx")
	appendBone(model, pmx.ROOT.String(), "", mmath.NewMVec3())
	appendBone(model, pmx.CENTER.String(), pmx.ROOT.String(), &mmath.MVec3{Y: 8})
	appendBone(model, pmx.UPPER.String(), pmx.CENTER.String(), &mmath.MVec3{Y: 10})
	appendBone(model, pmx.LOWER.String(), pmx.CENTER.String(), &mmath.MVec3{Y: 10})

	for _, direction := range pmx.BONE_DIRECTIONS {
		x := direction.Sign()
		appendBone(model, pmx.LEG.StringFromDirection(direction), pmx.LOWER.String(), &mmath.MVec3{X: x, Y: 10})
		appendBone(model, pmx.KNEE.StringFromDirection(direction), pmx.LEG.StringFromDirection(direction), &mmath.MVec3{X: x, Y: 5})
		appendBone(model, pmx.ANKLE.StringFromDirection(direction), pmx.KNEE.StringFromDirection(direction), &mmath.MVec3{X: x, Y: 1})
		appendBone(model, pmx.TOE.StringFromDirection(direction), pmx.ANKLE.StringFromDirection(direction), &mmath.MVec3{X: x, Z: -1})

		legIk := appendBone(model, pmx.LEG_IK.StringFromDirection(direction), pmx.ROOT.String(), &mmath.MVec3{X: x, Y: 1})
		appendIk(model, legIk, pmx.ANKLE.StringFromDirection(direction),
			pmx.KNEE.StringFromDirection(direction), pmx.LEG.StringFromDirection(direction))
		toeIk := appendBone(model, pmx.TOE_IK.StringFromDirection(direction), pmx.LEG_IK.StringFromDirection(direction), &mmath.MVec3{X: x, Z: -1})
		appendIk(model, toeIk, pmx.TOE.StringFromDirection(direction), pmx.ANKLE.StringFromDirection(direction))

		axis := &mmath.MVec3{X: x}
		appendBone(model, pmx.ARM.StringFromDirection(direction), pmx.UPPER.String(), &mmath.MVec3{X: 2 * x, Y: 15})
		appendTwist(model, pmx.ARM_TWIST.StringFromDirection(direction), pmx.ARM.StringFromDirection(direction), &mmath.MVec3{X: 3 * x, Y: 15}, axis)
		appendBone(model, pmx.ELBOW.StringFromDirection(direction), pmx.ARM_TWIST.StringFromDirection(direction), &mmath.MVec3{X: 4 * x, Y: 15})
		appendTwist(model, pmx.WRIST_TWIST.StringFromDirection(direction), pmx.ELBOW.StringFromDirection(direction), &mmath.MVec3{X: 5 * x, Y: 15}, axis)
		appendBone(model, pmx.WRIST.StringFromDirection(direction), pmx.WRIST_TWIST.StringFromDirection(direction), &mmath.MVec3{X: 6 * x, Y: 15})
	}

	model.Setup()
	return model
}

func insertBone(motion *vmd.VmdMotion, name string, frame int, rot *mmath.MQuaternion, pos *mmath.MVec3) {
	bf := vmd.NewBoneFrame(frame)
	bf.Registered = true
	bf.Rotation = rot
	bf.Position = pos
	motion.InsertBoneFrame(name, bf)
}

func TestHasKeys(t *testing.T) {
	motion := vmd.NewVmdMotion("")
	motion.BoneFrames.GetOrCreate(pmx.CENTER.String())
	insertBone(motion, pmx.UPPER.String(), 0, mmath.NewMQuaternion(), nil)

	if hasKeys(motion, pmx.CENTER.String()) {
		t.Errorf("empty container has keys")
	}
	if !hasKeys(motion, pmx.UPPER.String()) {
		t.Errorf("upper has no keys")
	}
	if hasKeys(motion, pmx.LOWER.String()) {
		t.Errorf("missing bone has keys")
	}
}

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		name     string
		op       domain.Operation
		expected int
	}{
		{name: "保存優先", op: &domain.NoiseOptions{CommonOptions: domain.CommonOptions{ExecSaving: true, MaxWorkers: 8}}, expected: 1},
		{name: "指定", op: &domain.SmoothOptions{CommonOptions: domain.CommonOptions{MaxWorkers: 3}}, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := workerCount(tt.op); got != tt.expected {
				t.Errorf("workerCount() = %d, expected %d", got, tt.expected)
			}
		})
	}

	if got := workerCount(&domain.SmoothOptions{}); got < 1 {
		t.Errorf("workerCount() = %d", got)
	}
}

func TestRemoveUnnecessaryBones(t *testing.T) {
	motion := vmd.NewVmdMotion("")
	for f := 0; f <= 10; f++ {
		insertBone(motion, pmx.CENTER.String(), f, mmath.NewMQuaternion(), &mmath.MVec3{Y: float64(f)})
	}

	options := &domain.SmoothOptions{}
	if err := removeUnnecessaryBones(context.Background(), options, motion, []string{pmx.CENTER.String()}); err != nil {
		t.Fatalf("removeUnnecessaryBones() error = %v", err)
	}
	if got := motion.BoneFrames.Get(pmx.CENTER.String()).Len(); got != 11 {
		t.Errorf("pruned without RemoveUnnecessary: %d", got)
	}

	options.RemoveUnnecessary = true
	if err := removeUnnecessaryBones(context.Background(), options, motion, []string{pmx.CENTER.String()}); err != nil {
		t.Fatalf("removeUnnecessaryBones() error = %v", err)
	}
	bnf := motion.BoneFrames.Get(pmx.CENTER.String())
	if bnf.Len() >= 11 {
		t.Errorf("linear keys were not pruned: %d", bnf.Len())
	}
	if got := bnf.Get(5).FilledPosition().Y; !mmath.NearEquals(got, 5, 0.05) {
		t.Errorf("frame 5 Y = %v", got)
	}
}
