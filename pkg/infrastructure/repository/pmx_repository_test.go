package repository

import (
	"bytes"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
)

func newTestModel() *pmx.PmxModel {
	model := pmx.NewPmxModel("")
	model.Name = "テストモデル"
	model.EnglishName = "test"

	appendBone := func(name string, position *mmath.MVec3, parentIndex int, flag pmx.BoneFlag) *pmx.Bone {
		bone := pmx.NewBoneByName(name)
		bone.SetIndex(model.Bones.Len())
		bone.Position = position
		bone.ParentIndex = parentIndex
		bone.BoneFlag |= flag
		model.Bones.Append(bone)
		return bone
	}

	appendBone(pmx.ROOT.String(), mmath.NewMVec3(), -1, pmx.BONE_FLAG_CAN_TRANSLATE)
	appendBone(pmx.LEG.Right(), &mmath.MVec3{X: -1, Y: 10}, 0, pmx.BONE_FLAG_NONE)
	appendBone(pmx.KNEE.Right(), &mmath.MVec3{X: -1, Y: 5}, 1, pmx.BONE_FLAG_NONE)
	appendBone(pmx.ANKLE.Right(), &mmath.MVec3{X: -1, Y: 1}, 2, pmx.BONE_FLAG_NONE)
	twist := appendBone(pmx.ARM_TWIST.Right(), &mmath.MVec3{X: -3, Y: 12}, 0, pmx.BONE_FLAG_HAS_FIXED_AXIS)
	twist.FixedAxis = &mmath.MVec3{X: -1}

	ikBone := appendBone(pmx.LEG_IK.Right(), &mmath.MVec3{X: -1, Y: 1}, 0, pmx.BONE_FLAG_IS_IK|pmx.BONE_FLAG_CAN_TRANSLATE)
	ikBone.Ik = pmx.NewIk()
	ikBone.Ik.BoneIndex = 3
	ikBone.Ik.LoopCount = 40
	ikBone.Ik.UnitRotation = &mmath.MVec3{X: 2}
	knee := pmx.NewIkLink()
	knee.BoneIndex = 2
	knee.AngleLimit = true
	knee.MinAngleLimit = &mmath.MVec3{X: -3.14}
	knee.MaxAngleLimit = &mmath.MVec3{X: -0.01}
	leg := pmx.NewIkLink()
	leg.BoneIndex = 1
	ikBone.Ik.Links = append(ikBone.Ik.Links, knee, leg)

	appendBone(pmx.MLIB_PREFIX+"足首先", &mmath.MVec3{X: -1}, 3, pmx.BONE_FLAG_NONE)

	model.Morphs.Append(pmx.NewMorph("あ"))
	model.DisplaySlots = append(model.DisplaySlots, &pmx.DisplaySlot{
		Name: "Root", Special: true, References: []pmx.DisplayReference{{Index: 0}},
	})

	model.Setup()
	return model
}

func TestPmxRepository_RoundTrip(t *testing.T) {
	rep := NewPmxRepository()
	model := newTestModel()

	var buf bytes.Buffer
	if err := rep.Write(&buf, model, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	read, err := rep.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if read.Name != model.Name || read.EnglishName != model.EnglishName {
		t.Errorf("name = %s / %s", read.Name, read.EnglishName)
	}
	// 処理用ボーンは出力しない
	if read.Bones.Len() != model.Bones.Len()-1 {
		t.Fatalf("bones = %d", read.Bones.Len())
	}
	if read.Bones.ContainsByName(pmx.MLIB_PREFIX + "足首先") {
		t.Errorf("system bone should not be written")
	}

	knee, err := read.Bones.GetByName(pmx.KNEE.Right())
	if err != nil {
		t.Fatalf("knee not found: %v", err)
	}
	if knee.ParentIndex != 1 || !knee.Position.NearEquals(&mmath.MVec3{X: -1, Y: 5}, 1e-6) {
		t.Errorf("knee = parent %d position %v", knee.ParentIndex, knee.Position)
	}
	if !knee.ParentRelativePosition.NearEquals(&mmath.MVec3{Y: -5}, 1e-6) {
		t.Errorf("knee relative = %v", knee.ParentRelativePosition)
	}

	twist, _ := read.Bones.GetByName(pmx.ARM_TWIST.Right())
	if !twist.HasFixedAxis() || !twist.FixedAxis.NearEquals(&mmath.MVec3{X: -1}, 1e-6) {
		t.Errorf("twist fixed axis = %v", twist.FixedAxis)
	}

	ikBone, _ := read.Bones.GetByName(pmx.LEG_IK.Right())
	if !ikBone.IsIK() || ikBone.Ik == nil {
		t.Fatalf("ik not read")
	}
	if ikBone.Ik.BoneIndex != 3 || ikBone.Ik.LoopCount != 40 || len(ikBone.Ik.Links) != 2 {
		t.Errorf("ik = %+v", ikBone.Ik)
	}
	if !ikBone.Ik.Links[0].AngleLimit || !mmath.NearEquals(ikBone.Ik.Links[0].MinAngleLimit.X, -3.14, 1e-5) {
		t.Errorf("ik link = %+v", ikBone.Ik.Links[0])
	}
	if ikBone.Ik.Links[1].AngleLimit {
		t.Errorf("leg link should not have angle limit")
	}

	if !read.Morphs.ContainsByName("あ") {
		t.Errorf("morph not read")
	}
	if len(read.DisplaySlots) != 1 || !read.DisplaySlots[0].Special || len(read.DisplaySlots[0].References) != 1 {
		t.Errorf("display slots = %+v", read.DisplaySlots)
	}
}

func TestPmxRepository_Vertices(t *testing.T) {
	rep := NewPmxRepository()
	model := newTestModel()

	for i := 0; i < 3; i++ {
		model.Vertices = append(model.Vertices, &pmx.Vertex{
			Position: &mmath.MVec3{X: float64(i)},
			Normal:   &mmath.MVec3{Y: 1},
			Uv:       mmath.NewMVec2(),
		})
	}
	model.Faces = append(model.Faces, &pmx.Face{VertexIndexes: [3]int{0, 1, 2}})
	material := pmx.NewMaterial("軌跡")
	material.Diffuse = [4]float64{1, 0, 0, 1}
	material.VerticesCount = 3
	model.Materials = append(model.Materials, material)

	var buf bytes.Buffer
	if err := rep.Write(&buf, model, true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	read, err := rep.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if len(read.Vertices) != 3 || len(read.Faces) != 1 || len(read.Materials) != 1 {
		t.Fatalf("vertices=%d faces=%d materials=%d", len(read.Vertices), len(read.Faces), len(read.Materials))
	}
	if read.Faces[0].VertexIndexes != [3]int{0, 1, 2} {
		t.Errorf("face = %v", read.Faces[0].VertexIndexes)
	}
	if read.Materials[0].Name != "軌跡" || read.Materials[0].Diffuse[1] != 0 || read.Materials[0].VerticesCount != 3 {
		t.Errorf("material = %+v", read.Materials[0])
	}
	if read.Bones.Len() != model.Bones.Len() {
		t.Errorf("system bones should be written: %d", read.Bones.Len())
	}
}
