package repository

import (
	"io"
	"os"
	"strings"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/pkg/errors"
)

const (
	vmdSignatureSize = 30
	vmdModelNameSize = 20
	vmdBoneNameSize  = 15
	vmdIkNameSize    = 20

	// モデル名が Shift-JIS に変換できない場合のモデル名
	VMD_PLACEHOLDER_MODEL_NAME = "Vmd Sized Model"
)

// カメラ・照明モーションのモデル名
var vmdCameraModelName = []byte("\x83J\x83\x81\x83\x89\x81E\x8f\xc6\x96\xbe\x00on Data")

type VmdRepository struct{}

func NewVmdRepository() *VmdRepository {
	return &VmdRepository{}
}

func (rep *VmdRepository) CanLoad(path string) (bool, error) {
	return canLoad(path, ".vmd")
}

// Load は VMD を読み込む。戻り値は *vmd.VmdMotion
func (rep *VmdRepository) Load(path string) (any, error) {
	if ok, err := rep.CanLoad(path); !ok {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	motion, err := rep.Read(f)
	if err != nil {
		return nil, merr.NewParseError(path, err)
	}
	motion.SetPath(path)
	return motion, nil
}

// Read は r から VMD を読み込む
func (rep *VmdRepository) Read(r io.Reader) (*vmd.VmdMotion, error) {
	br := newBaseReader(r)
	motion := vmd.NewVmdMotion("")

	motion.Signature = br.readSjis(vmdSignatureSize)
	if br.err != nil {
		return nil, errors.WithStack(br.err)
	}
	if !strings.HasPrefix(motion.Signature, vmd.DEFAULT_SIGNATURE) {
		return nil, errors.Errorf("unsupported signature: %s", motion.Signature)
	}
	motion.ModelName = br.readSjis(vmdModelNameSize)

	readers := []func(*baseReader, *vmd.VmdMotion){
		readBoneFrames, readMorphFrames, readCameraFrames, readLightFrames, readShadowFrames, readIkFrames,
	}
	for _, read := range readers {
		read(br, motion)
		if br.err == io.EOF {
			// 古い形式は途中のセクションまでしかない
			return motion, nil
		}
		if br.err != nil {
			return nil, errors.WithStack(br.err)
		}
	}

	return motion, nil
}

func readBoneFrames(br *baseReader, motion *vmd.VmdMotion) {
	count := br.readUint32()
	for i := 0; i < count && br.err == nil; i++ {
		name := br.readSjis(vmdBoneNameSize)
		bf := vmd.NewBoneFrame(br.readUint32())
		bf.Position = br.readVec3()
		bf.Rotation = br.readQuaternion()
		bf.Curves = vmd.NewBoneCurvesByValues(br.readBytes(64))
		if br.err != nil {
			br.unexpectedEOF()
			return
		}
		bf.Registered = true
		bf.Read = true
		motion.AppendBoneFrame(name, bf)
	}
}

func readMorphFrames(br *baseReader, motion *vmd.VmdMotion) {
	count := br.readUint32()
	for i := 0; i < count && br.err == nil; i++ {
		name := br.readSjis(vmdBoneNameSize)
		mf := vmd.NewMorphFrame(br.readUint32())
		mf.Ratio = br.readFloat()
		if br.err != nil {
			br.unexpectedEOF()
			return
		}
		mf.Read = true
		motion.InsertMorphFrame(name, mf)
	}
}

func readCameraFrames(br *baseReader, motion *vmd.VmdMotion) {
	count := br.readUint32()
	for i := 0; i < count && br.err == nil; i++ {
		cf := vmd.NewCameraFrame(br.readUint32())
		cf.Distance = br.readFloat()
		cf.Position = br.readVec3()
		cf.Rotation = br.readVec3()
		cf.Curves = br.readBytes(24)
		cf.ViewOfAngle = br.readUint32()
		cf.IsPerspectiveOff = br.readUint8() == 1
		if br.err != nil {
			br.unexpectedEOF()
			return
		}
		motion.AppendCameraFrame(cf)
	}
}

func readLightFrames(br *baseReader, motion *vmd.VmdMotion) {
	count := br.readUint32()
	for i := 0; i < count && br.err == nil; i++ {
		lf := vmd.NewLightFrame(br.readUint32())
		lf.Color = br.readVec3()
		lf.Position = br.readVec3()
		if br.err != nil {
			br.unexpectedEOF()
			return
		}
		motion.AppendLightFrame(lf)
	}
}

func readShadowFrames(br *baseReader, motion *vmd.VmdMotion) {
	count := br.readUint32()
	for i := 0; i < count && br.err == nil; i++ {
		sf := vmd.NewShadowFrame(br.readUint32())
		sf.Mode = br.readUint8()
		sf.Distance = br.readFloat()
		if br.err != nil {
			br.unexpectedEOF()
			return
		}
		motion.AppendShadowFrame(sf)
	}
}

func readIkFrames(br *baseReader, motion *vmd.VmdMotion) {
	count := br.readUint32()
	for i := 0; i < count && br.err == nil; i++ {
		kf := vmd.NewIkFrame(br.readUint32())
		kf.Visible = br.readUint8() == 1
		ikCount := br.readUint32()
		for j := 0; j < ikCount && br.err == nil; j++ {
			name := br.readSjis(vmdIkNameSize)
			kf.IkList = append(kf.IkList, vmd.NewIkEnableFrame(name, br.readUint8() == 1))
		}
		if br.err != nil {
			br.unexpectedEOF()
			return
		}
		motion.AppendIkFrame(kf)
	}
}

// Save は VMD を保存する
func (rep *VmdRepository) Save(path string, data any, includeSystem bool) error {
	motion, ok := data.(*vmd.VmdMotion)
	if !ok {
		return errors.Errorf("not a motion: %T", data)
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := rep.Write(f, motion, includeSystem); err != nil {
		return err
	}
	return errors.WithStack(f.Close())
}

// Write は w に VMD を書き出す
func (rep *VmdRepository) Write(w io.Writer, motion *vmd.VmdMotion, includeSystem bool) error {
	bw := newBaseWriter(w)

	bw.writeFixed([]byte(vmd.DEFAULT_SIGNATURE), vmdSignatureSize)

	if motion.IsEmpty() {
		bw.writeFixed(vmdCameraModelName, vmdModelNameSize)
	} else {
		modelName, err := encodeSjis(motion.ModelName, vmdModelNameSize)
		if err != nil {
			mlog.W("モデル名を Shift-JIS に変換できないため、仮の名前で出力します: %s", motion.ModelName)
			modelName = []byte(VMD_PLACEHOLDER_MODEL_NAME)
		}
		bw.writeFixed(modelName, vmdModelNameSize)
	}

	boneNames := make([]string, 0, motion.BoneFrames.Len())
	boneCount := 0
	for _, name := range motion.BoneFrames.Names() {
		if !includeSystem && strings.HasPrefix(name, pmx.MLIB_PREFIX) {
			continue
		}
		boneNames = append(boneNames, name)
		boneCount += motion.BoneFrames.Get(name).Len()
	}

	bw.writeUint32(boneCount)
	for _, name := range boneNames {
		encodedName := encodeName(name, vmdBoneNameSize)
		motion.BoneFrames.Get(name).ForEach(func(index int, bf *vmd.BoneFrame) bool {
			bw.writeFixed(encodedName, vmdBoneNameSize)
			bw.writeUint32(index)
			bw.writeVec3(bf.FilledPosition())
			bw.writeQuaternion(bf.FilledRotation())
			bw.writeFixed(bf.FilledCurves().Merge(), 64)
			return bw.err == nil
		})
	}

	morphCount := 0
	for _, name := range motion.MorphFrames.Names() {
		morphCount += motion.MorphFrames.Get(name).Len()
	}
	bw.writeUint32(morphCount)
	for _, name := range motion.MorphFrames.Names() {
		encodedName := encodeName(name, vmdBoneNameSize)
		motion.MorphFrames.Get(name).ForEach(func(index int, mf *vmd.MorphFrame) bool {
			bw.writeFixed(encodedName, vmdBoneNameSize)
			bw.writeUint32(index)
			bw.writeFloat(mf.Ratio)
			return bw.err == nil
		})
	}

	bw.writeUint32(motion.CameraFrames.Len())
	for _, cf := range motion.CameraFrames.Values() {
		bw.writeUint32(cf.Index())
		bw.writeFloat(cf.Distance)
		bw.writeVec3(cf.Position)
		bw.writeVec3(cf.Rotation)
		bw.writeFixed(cf.Curves, 24)
		bw.writeUint32(cf.ViewOfAngle)
		if cf.IsPerspectiveOff {
			bw.writeUint8(1)
		} else {
			bw.writeUint8(0)
		}
	}

	bw.writeUint32(motion.LightFrames.Len())
	for _, lf := range motion.LightFrames.Values() {
		bw.writeUint32(lf.Index())
		bw.writeVec3(lf.Color)
		bw.writeVec3(lf.Position)
	}

	bw.writeUint32(motion.ShadowFrames.Len())
	for _, sf := range motion.ShadowFrames.Values() {
		bw.writeUint32(sf.Index())
		bw.writeUint8(sf.Mode)
		bw.writeFloat(sf.Distance)
	}

	// カメラモーションには表示・IKを出力しない
	if motion.CameraFrames.Len() == 0 {
		bw.writeUint32(motion.IkFrames.Len())
		for _, kf := range motion.IkFrames.Values() {
			bw.writeUint32(kf.Index())
			bw.writeUint8(boolByte(kf.Visible))
			bw.writeUint32(len(kf.IkList))
			for _, ik := range kf.IkList {
				bw.writeFixed(encodeName(ik.BoneName, vmdIkNameSize), vmdIkNameSize)
				bw.writeUint8(boolByte(ik.Enabled))
			}
		}
	}

	return bw.flush()
}

func encodeName(name string, size int) []byte {
	encoded, err := encodeSjis(name, size)
	if err != nil {
		mlog.W("Shift-JIS に変換できない文字を除いて出力します: %s", name)
	}
	return encoded
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
