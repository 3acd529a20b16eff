package vmd

import (
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
)

const DEFAULT_SIGNATURE = "Vocaloid Motion Data 0002"

// VmdMotion はモーションデータ
type VmdMotion struct {
	path         string
	Signature    string
	ModelName    string
	BoneFrames   *BoneFrames
	MorphFrames  *MorphFrames
	CameraFrames *CameraFrames
	LightFrames  *LightFrames
	ShadowFrames *ShadowFrames
	IkFrames     *IkFrames
}

func NewVmdMotion(path string) *VmdMotion {
	return &VmdMotion{
		path:         path,
		Signature:    DEFAULT_SIGNATURE,
		BoneFrames:   NewBoneFrames(),
		MorphFrames:  NewMorphFrames(),
		CameraFrames: NewFrames[*CameraFrame](),
		LightFrames:  NewFrames[*LightFrame](),
		ShadowFrames: NewFrames[*ShadowFrame](),
		IkFrames:     NewFrames[*IkFrame](),
	}
}

func (motion *VmdMotion) Path() string {
	return motion.path
}

func (motion *VmdMotion) SetPath(path string) {
	motion.path = path
}

// InsertBoneFrame はボーンキーを登録する(補間曲線は分割して形状を保つ)
func (motion *VmdMotion) InsertBoneFrame(boneName string, bf *BoneFrame) {
	motion.BoneFrames.GetOrCreate(boneName).Insert(bf)
}

// AppendBoneFrame はボーンキーを補間曲線をそのままに登録する
func (motion *VmdMotion) AppendBoneFrame(boneName string, bf *BoneFrame) {
	motion.BoneFrames.GetOrCreate(boneName).Append(bf)
}

func (motion *VmdMotion) InsertMorphFrame(morphName string, mf *MorphFrame) {
	motion.MorphFrames.GetOrCreate(morphName).Insert(mf)
}

func (motion *VmdMotion) AppendCameraFrame(cf *CameraFrame) {
	motion.CameraFrames.Append(cf)
}

func (motion *VmdMotion) AppendLightFrame(lf *LightFrame) {
	motion.LightFrames.Append(lf)
}

func (motion *VmdMotion) AppendShadowFrame(sf *ShadowFrame) {
	motion.ShadowFrames.Append(sf)
}

func (motion *VmdMotion) AppendIkFrame(kf *IkFrame) {
	motion.IkFrames.Append(kf)
}

// MaxFrame は全キーフレームの最終フレーム
func (motion *VmdMotion) MaxFrame() int {
	return max(
		motion.BoneFrames.MaxFrame(),
		motion.MorphFrames.MaxFrame(),
		motion.CameraFrames.MaxFrame(),
		motion.LightFrames.MaxFrame(),
		motion.ShadowFrames.MaxFrame(),
		motion.IkFrames.MaxFrame(),
	)
}

func (motion *VmdMotion) MinFrame() int {
	return motion.BoneFrames.MinFrame()
}

// IsEmpty はボーン・モーフのキーがないか
func (motion *VmdMotion) IsEmpty() bool {
	return motion.BoneFrames.Len() == 0 && motion.MorphFrames.Len() == 0
}

func (motion *VmdMotion) Copy() (*VmdMotion, error) {
	copied := &VmdMotion{
		path:         motion.path,
		Signature:    motion.Signature,
		ModelName:    motion.ModelName,
		BoneFrames:   motion.BoneFrames.Copy(),
		MorphFrames:  motion.MorphFrames.Copy(),
		CameraFrames: motion.CameraFrames.Copy((*CameraFrame).Copy),
		LightFrames:  motion.LightFrames.Copy((*LightFrame).Copy),
		ShadowFrames: motion.ShadowFrames.Copy((*ShadowFrame).Copy),
		IkFrames:     motion.IkFrames.Copy((*IkFrame).Copy),
	}
	return copied, nil
}

// GetDifferFrames は指定ボーン群の値が前回採用したフレームから
// limitDegrees(度) か limitLength 以上変化したフレームの一覧を返す。
// 各ボーンのキーフレームは常に含む
func (motion *VmdMotion) GetDifferFrames(boneNames []string, limitDegrees, limitLength float64) []int {
	keyFrames := motion.BoneFrames.IndexList(boneNames)
	if len(keyFrames) == 0 {
		return keyFrames
	}

	frames := NewFrameIndexes()
	for _, index := range keyFrames {
		frames.Insert(index)
	}

	lastRotations := make(map[string]*mmath.MQuaternion)
	lastPositions := make(map[string]*mmath.MVec3)
	for _, name := range boneNames {
		bf := motion.BoneFrames.Get(name).Get(keyFrames[0])
		lastRotations[name] = bf.FilledRotation()
		lastPositions[name] = bf.FilledPosition()
	}

	for index := keyFrames[0] + 1; index <= keyFrames[len(keyFrames)-1]; index++ {
		differ := frames.Has(index)
		for _, name := range boneNames {
			if differ {
				break
			}
			bf := motion.BoneFrames.Get(name).Get(index)
			if bf.FilledRotation().AngleDegrees(lastRotations[name]) >= limitDegrees ||
				bf.FilledPosition().Distance(lastPositions[name]) >= limitLength {
				differ = true
			}
		}
		if !differ {
			continue
		}

		frames.Insert(index)
		for _, name := range boneNames {
			bf := motion.BoneFrames.Get(name).Get(index)
			lastRotations[name] = bf.FilledRotation()
			lastPositions[name] = bf.FilledPosition()
		}
	}

	return frames.List()
}

// RemoveUnnecessaryFrames は全ボーンの不要キーを除去する。除去したキー数を返す
func (motion *VmdMotion) RemoveUnnecessaryFrames(
	boneNames []string, rotatable, translatable func(string) bool, degreeTolerance, lengthTolerance float64,
) int {
	count := 0
	for _, name := range boneNames {
		if !motion.BoneFrames.Contains(name) {
			continue
		}
		bnf := motion.BoneFrames.Get(name)
		count += bnf.RemoveUnnecessary(
			bnf.MinFrame(), bnf.MaxFrame(), rotatable(name), translatable(name), degreeTolerance, lengthTolerance)
	}
	return count
}
