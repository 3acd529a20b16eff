package deform

import (
	"math"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
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

func newLegModel() *pmx.PmxModel {
	model := pmx.NewPmxModel("")
	appendBone(model, pmx.ROOT.String(), "", mmath.NewMVec3())
	appendBone(model, pmx.CENTER.String(), pmx.ROOT.String(), &mmath.MVec3{Y: 8})
	appendBone(model, pmx.LOWER.String(), pmx.CENTER.String(), &mmath.MVec3{Y: 10})
	appendBone(model, pmx.LEG.Right(), pmx.LOWER.String(), &mmath.MVec3{X: -1, Y: 10})
	appendBone(model, pmx.KNEE.Right(), pmx.LEG.Right(), &mmath.MVec3{X: -1, Y: 5})
	appendBone(model, pmx.ANKLE.Right(), pmx.KNEE.Right(), &mmath.MVec3{X: -1, Y: 1})

	leg, _ := model.Bones.GetByName(pmx.LEG.Right())
	knee, _ := model.Bones.GetByName(pmx.KNEE.Right())
	ankle, _ := model.Bones.GetByName(pmx.ANKLE.Right())

	ikBone := appendBone(model, pmx.LEG_IK.Right(), pmx.ROOT.String(), &mmath.MVec3{X: -1, Y: 1})
	ikBone.BoneFlag |= pmx.BONE_FLAG_IS_IK | pmx.BONE_FLAG_CAN_TRANSLATE
	ikBone.Ik = pmx.NewIk()
	ikBone.Ik.BoneIndex = ankle.Index()
	ikBone.Ik.LoopCount = 40
	ikBone.Ik.UnitRotation = &mmath.MVec3{X: 1}
	for _, linkBone := range []*pmx.Bone{knee, leg} {
		link := pmx.NewIkLink()
		link.BoneIndex = linkBone.Index()
		ikBone.Ik.Links = append(ikBone.Ik.Links, link)
	}

	model.Setup()
	return model
}

func TestCalcGlobalPose_RootRotation(t *testing.T) {
	model := newLegModel()
	motion := vmd.NewVmdMotion("")

	rootBf := vmd.NewBoneFrame(0)
	rootBf.Rotation = mmath.NewMQuaternionFromDegrees(0, 90, 0)
	rootBf.Position = &mmath.MVec3{Z: 2}
	motion.InsertBoneFrame(pmx.ROOT.String(), rootBf)

	centerBf := vmd.NewBoneFrame(0)
	centerBf.Position = &mmath.MVec3{Y: 1}
	motion.InsertBoneFrame(pmx.CENTER.String(), centerBf)

	links, err := model.Bones.CreateLinkToRoot(pmx.LEG.Right())
	if err != nil {
		t.Fatalf("CreateLinkToRoot() error = %v", err)
	}

	deltas := CalcGlobalPose(model, links, motion, 0, nil)

	// 全ての親の移動 + 回転後の(センター移動込みの)足の位置
	expected := rootBf.Position.Added(rootBf.Rotation.MulVec3(&mmath.MVec3{X: -1, Y: 11}))
	actual := deltas.Bones.GetByName(pmx.LEG.Right()).FilledGlobalPosition()
	if !actual.NearEquals(expected, 1e-6) {
		t.Errorf("leg position = %v, expected %v", actual, expected)
	}

	// 制限リンク外のボーンは初期姿勢
	limit, _ := model.Bones.CreateLinkFromTo(pmx.CENTER.String(), pmx.LEG.Right())
	limited := CalcGlobalPose(model, links, motion, 0, limit)
	actual = limited.Bones.GetByName(pmx.LEG.Right()).FilledGlobalPosition()
	if !actual.NearEquals(&mmath.MVec3{X: -1, Y: 11}, 1e-6) {
		t.Errorf("limited leg position = %v", actual)
	}
}

func TestCalcGlobalPose_Deterministic(t *testing.T) {
	model := newLegModel()
	motion := vmd.NewVmdMotion("")
	for _, f := range []int{0, 10} {
		bf := vmd.NewBoneFrame(f)
		bf.Rotation = mmath.NewMQuaternionFromDegrees(float64(f)*3, 10, -20)
		motion.InsertBoneFrame(pmx.KNEE.Right(), bf)
	}

	links, _ := model.Bones.CreateLinkToRoot(pmx.ANKLE.Right())
	for f := 0; f <= 10; f++ {
		first := CalcGlobalPose(model, links, motion, f, nil)
		second := CalcGlobalPose(model, links, motion, f, nil)
		for _, bd := range first.Bones.Values() {
			other := second.Bones.Get(bd.Bone.Index())
			if *bd.GlobalMatrix != *other.GlobalMatrix {
				t.Errorf("frame %d bone %s: not identical", f, bd.Bone.Name())
			}
		}
	}
}

func TestSolveIk_Monotonic(t *testing.T) {
	model := newLegModel()
	motion := vmd.NewVmdMotion("")

	ikBone, _ := model.Bones.GetByName(pmx.LEG_IK.Right())
	ik, err := NewIkChain(model, ikBone)
	if err != nil {
		t.Fatalf("NewIkChain() error = %v", err)
	}
	links, _ := model.Bones.CreateLinkToRoot(pmx.ANKLE.Right())

	tests := []struct {
		name   string
		target *mmath.MVec3
	}{
		{name: "前", target: &mmath.MVec3{X: -1, Y: 4, Z: -3}},
		{name: "横", target: &mmath.MVec3{X: -3, Y: 3, Z: -1}},
		{name: "近い", target: &mmath.MVec3{X: -1, Y: 2, Z: -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := SolveIk(model, links, motion, 0, tt.target, ik, 40, DefaultIkPolicy())
			if err != nil {
				t.Fatalf("SolveIk() error = %v", err)
			}
			for i := 1; i < len(result.Distances); i++ {
				if result.Distances[i] > result.Distances[i-1] {
					t.Errorf("distance increased at %d: %v", i, result.Distances)
				}
			}

			actual, _ := CalcGlobalPosition(model, motion, pmx.ANKLE.Right(), 0)
			if math.Abs(actual.Distance(tt.target)-result.BestDistance) > 1e-6 {
				t.Errorf("restored distance = %f, best %f", actual.Distance(tt.target), result.BestDistance)
			}
			if result.BestDistance > 0.5 {
				t.Errorf("BestDistance = %f", result.BestDistance)
			}
		})
	}
}

func TestNewIkChain_InvalidLink(t *testing.T) {
	model := newLegModel()
	ikBone, _ := model.Bones.GetByName(pmx.LEG_IK.Right())
	broken := ikBone.Copy()
	link := pmx.NewIkLink()
	link.BoneIndex = 999
	broken.Ik.Links = append(broken.Ik.Links, link)

	_, err := NewIkChain(model, broken)
	if !merr.IsConfigError(err) {
		t.Errorf("NewIkChain() error = %v, expected ConfigError", err)
	}
}

func TestLimitUnitRotation(t *testing.T) {
	q := mmath.NewMQuaternionFromAxisAnglesDegrees(mmath.MVec3UnitY, 90)
	limited := limitUnitRotation(q, mmath.DegToRad(30))
	if math.Abs(limited.ToDegree()-30) > 1e-6 {
		t.Errorf("limited = %f", limited.ToDegree())
	}
	if limitUnitRotation(q, 0) != q {
		t.Errorf("no limit should return same")
	}
}
