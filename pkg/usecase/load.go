package usecase

import (
	"sync"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/repository"
	"github.com/pkg/errors"
)

// MotionSet は処理対象のモーションとモデル
type MotionSet struct {
	MotionPath string `json:"motion_path"`
	ModelPath  string `json:"model_path"`

	Motion *vmd.VmdMotion `json:"-"`
	Model  *pmx.PmxModel  `json:"-"`
}

// LoadMotionSet はモーションとモデルを並列に読み込む。modelPath が空の場合モデルは読まない
func LoadMotionSet(motionPath, modelPath string) (*MotionSet, error) {
	ms := &MotionSet{MotionPath: motionPath, ModelPath: modelPath}

	var wg sync.WaitGroup
	var motionErr, modelErr error

	wg.Add(1)
	go func() {
		defer wg.Done()

		vmdRep := repository.NewVmdRepository()
		if data, err := vmdRep.Load(motionPath); err == nil {
			ms.Motion = data.(*vmd.VmdMotion)
		} else {
			mlog.ET(mi18n.T("読み込み失敗"), "%s", err.Error())
			motionErr = err
		}
	}()

	if modelPath != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			pmxRep := repository.NewPmxRepository()
			if data, err := pmxRep.Load(modelPath); err == nil {
				ms.Model = data.(*pmx.PmxModel)
			} else {
				mlog.ET(mi18n.T("読み込み失敗"), "%s", err.Error())
				modelErr = err
			}
		}()
	}

	wg.Wait()

	if motionErr != nil {
		return nil, motionErr
	}
	if modelErr != nil {
		return nil, modelErr
	}

	ms.PrepareBoneNameFrames()
	return ms, nil
}

// PrepareBoneNameFrames はモデルの全ボーンの枠をモーションに用意しておく(並列対策)
func (ms *MotionSet) PrepareBoneNameFrames() {
	if ms.Motion == nil || ms.Model == nil {
		return
	}
	for _, bone := range ms.Model.Bones.Values() {
		ms.Motion.BoneFrames.GetOrCreate(bone.Name())
	}
}

// SaveMotion はモーションを保存する
func SaveMotion(path string, motion *vmd.VmdMotion) error {
	if motion == nil {
		return errors.New("no motion")
	}
	return repository.NewVmdRepository().Save(path, motion, false)
}

// SaveModel はモデルを保存する
func SaveModel(path string, model *pmx.PmxModel) error {
	if model == nil {
		return errors.New("no model")
	}
	return repository.NewPmxRepository().Save(path, model, true)
}
