package repository

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
)

func newTestMotion() *vmd.VmdMotion {
	motion := vmd.NewVmdMotion("")
	motion.ModelName = "初音ミク"

	curveValues := make([]byte, 64)
	for i := range curveValues {
		curveValues[i] = byte(20 + i%100)
	}

	bf := vmd.NewBoneFrame(3)
	bf.Position = &mmath.MVec3{X: 1, Y: 2, Z: 3}
	bf.Rotation = mmath.NewMQuaternionFromDegrees(10, 20, 30)
	bf.Curves = vmd.NewBoneCurvesByValues(curveValues)
	motion.AppendBoneFrame(pmx.CENTER.String(), bf)

	bf2 := vmd.NewBoneFrame(10)
	bf2.Rotation = mmath.NewMQuaternionFromDegrees(0, 90, 0)
	motion.AppendBoneFrame(pmx.UPPER.String(), bf2)

	mf := vmd.NewMorphFrame(5)
	mf.Ratio = 0.5
	motion.InsertMorphFrame("あ", mf)

	lf := vmd.NewLightFrame(0)
	lf.Color = &mmath.MVec3{X: 0.6, Y: 0.6, Z: 0.6}
	lf.Position = &mmath.MVec3{X: -0.5, Y: -1, Z: 0.5}
	motion.AppendLightFrame(lf)

	sf := vmd.NewShadowFrame(0)
	sf.Mode = 1
	sf.Distance = 0.25
	motion.AppendShadowFrame(sf)

	kf := vmd.NewIkFrame(0)
	kf.Visible = true
	kf.IkList = append(kf.IkList,
		vmd.NewIkEnableFrame(pmx.LEG_IK.Right(), true), vmd.NewIkEnableFrame(pmx.LEG_IK.Left(), false))
	motion.AppendIkFrame(kf)

	return motion
}

func TestVmdRepository_RoundTrip(t *testing.T) {
	rep := NewVmdRepository()
	motion := newTestMotion()

	var buf bytes.Buffer
	if err := rep.Write(&buf, motion, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	read, err := rep.Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if read.ModelName != motion.ModelName {
		t.Errorf("ModelName = %s", read.ModelName)
	}

	bf := read.BoneFrames.Get(pmx.CENTER.String()).Get(3)
	if !bf.Registered || !bf.Read {
		t.Errorf("read flags: registered=%v read=%v", bf.Registered, bf.Read)
	}
	if !bf.FilledPosition().NearEquals(&mmath.MVec3{X: 1, Y: 2, Z: 3}, 1e-6) {
		t.Errorf("position = %v", bf.FilledPosition())
	}
	if !bf.FilledRotation().NearEquals(mmath.NewMQuaternionFromDegrees(10, 20, 30), 1e-6) {
		t.Errorf("rotation = %v", bf.FilledRotation())
	}
	original := motion.BoneFrames.Get(pmx.CENTER.String()).Get(3).FilledCurves().Values
	if !bytes.Equal(bf.FilledCurves().Merge(), original) {
		t.Errorf("curves = %v, want %v", bf.FilledCurves().Merge(), original)
	}

	if !read.BoneFrames.Get(pmx.UPPER.String()).Contains(10) {
		t.Errorf("upper key not found")
	}

	if ratio := read.MorphFrames.Get("あ").Get(5).Ratio; !mmath.NearEquals(ratio, 0.5, 1e-6) {
		t.Errorf("morph ratio = %v", ratio)
	}
	if read.LightFrames.Len() != 1 || read.ShadowFrames.Len() != 1 {
		t.Errorf("light=%d shadow=%d", read.LightFrames.Len(), read.ShadowFrames.Len())
	}
	if read.ShadowFrames.Values()[0].Mode != 1 {
		t.Errorf("shadow mode = %d", read.ShadowFrames.Values()[0].Mode)
	}

	if read.IkFrames.Len() != 1 {
		t.Fatalf("ik frames = %d", read.IkFrames.Len())
	}
	ikList := read.IkFrames.Values()[0].IkList
	if len(ikList) != 2 || ikList[0].BoneName != pmx.LEG_IK.Right() || !ikList[0].Enabled || ikList[1].Enabled {
		t.Errorf("ik list = %+v", ikList)
	}

	// 読み直した結果を再度書き出しても同じバイト列になる
	var buf2 bytes.Buffer
	if err := rep.Write(&buf2, read, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
		t.Errorf("rewritten bytes differ")
	}
}

func TestVmdRepository_SystemBones(t *testing.T) {
	rep := NewVmdRepository()
	motion := newTestMotion()
	motion.InsertBoneFrame(pmx.MLIB_PREFIX+"足首先", vmd.NewBoneFrame(0))

	tests := []struct {
		name          string
		includeSystem bool
		expected      bool
	}{
		{name: "除外", includeSystem: false, expected: false},
		{name: "出力", includeSystem: true, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := rep.Write(&buf, motion, tt.includeSystem); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			read, err := rep.Read(&buf)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if read.BoneFrames.Contains(pmx.MLIB_PREFIX+"足首先") != tt.expected {
				t.Errorf("system bone contains = %v", !tt.expected)
			}
		})
	}
}

func TestVmdRepository_CameraMotion(t *testing.T) {
	rep := NewVmdRepository()
	motion := vmd.NewVmdMotion("")
	cf := vmd.NewCameraFrame(0)
	cf.Distance = -45
	cf.Position = &mmath.MVec3{Y: 10}
	cf.ViewOfAngle = 30
	for i := range cf.Curves {
		cf.Curves[i] = byte(i * 5)
	}
	motion.AppendCameraFrame(cf)
	motion.AppendIkFrame(vmd.NewIkFrame(0))

	var buf bytes.Buffer
	if err := rep.Write(&buf, motion, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	b := buf.Bytes()
	if !bytes.Equal(b[vmdSignatureSize:vmdSignatureSize+vmdModelNameSize], vmdCameraModelName) {
		t.Errorf("model name = %v", b[vmdSignatureSize:vmdSignatureSize+vmdModelNameSize])
	}

	read, err := rep.Read(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if read.CameraFrames.Len() != 1 {
		t.Fatalf("camera frames = %d", read.CameraFrames.Len())
	}
	if !bytes.Equal(read.CameraFrames.Values()[0].Curves, cf.Curves) {
		t.Errorf("camera curves = %v", read.CameraFrames.Values()[0].Curves)
	}
	if read.IkFrames.Len() != 0 {
		t.Errorf("camera motion should not have ik frames: %d", read.IkFrames.Len())
	}
}

func TestVmdRepository_PlaceholderModelName(t *testing.T) {
	rep := NewVmdRepository()
	motion := newTestMotion()
	motion.ModelName = "🎤"

	var buf bytes.Buffer
	if err := rep.Write(&buf, motion, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	read, err := rep.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if read.ModelName != VMD_PLACEHOLDER_MODEL_NAME {
		t.Errorf("ModelName = %s", read.ModelName)
	}
}

func TestVmdRepository_TruncatedSections(t *testing.T) {
	rep := NewVmdRepository()
	motion := newTestMotion()

	var buf bytes.Buffer
	if err := rep.Write(&buf, motion, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	b := buf.Bytes()

	// ボーンとモーフのみの古い形式(カメラ以降のセクションなし)
	boneAndMorph := vmdSignatureSize + vmdModelNameSize + 4 + 2*111 + 4 + 23
	read, err := rep.Read(bytes.NewReader(b[:boneAndMorph]))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if read.BoneFrames.Len() != 2 || read.MorphFrames.Len() != 1 {
		t.Errorf("bones=%d morphs=%d", read.BoneFrames.Len(), read.MorphFrames.Len())
	}

	// キーの途中で終わっている
	if _, err := rep.Read(bytes.NewReader(b[:boneAndMorph-5])); err == nil {
		t.Errorf("truncated key should fail")
	}

	if _, err := rep.Read(bytes.NewReader([]byte("Vocaloid Motion Data file"))); err == nil {
		t.Errorf("old signature should fail")
	}
}

func TestVmdRepository_SaveLoad(t *testing.T) {
	rep := NewVmdRepository()
	path := filepath.Join(t.TempDir(), "out", "motion.vmd")

	if err := rep.Save(path, newTestMotion(), false); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := rep.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	motion := data.(*vmd.VmdMotion)
	if motion.Path() != path {
		t.Errorf("Path() = %s", motion.Path())
	}

	if _, err := rep.Load(filepath.Join(t.TempDir(), "motion.pmx")); err == nil {
		t.Errorf("unsupported extension should fail")
	}
}
