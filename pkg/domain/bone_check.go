package domain

import (
	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
)

// CheckTrunkBoneType は体幹系の必要ボーン。IsStandard でないものは無くても続行する
type CheckTrunkBoneType struct {
	BoneName   pmx.StandardBoneName
	IsStandard bool
}

// CheckDirectionBoneType は左右それぞれに必要なボーン
type CheckDirectionBoneType struct {
	BoneName   pmx.StandardBoneName
	IsStandard bool
}

// CheckBones は処理に必要なボーンがモデルにあるか確認する。
// 必須ボーンが無い場合は最初に見つかったボーン名で ConfigError を返す
func CheckBones(
	model *pmx.PmxModel, process string, trunks []CheckTrunkBoneType,
	directions []CheckDirectionBoneType, targetDirections ...pmx.BoneDirection,
) (err error) {
	if len(targetDirections) == 0 {
		targetDirections = pmx.BONE_DIRECTIONS
	}

	check := func(boneName string, isStandard bool) {
		if model.Bones.ContainsByName(boneName) {
			return
		}
		keyName := "ボーン不足エラー"
		if !isStandard {
			keyName = "検証ボーン不足エラー"
		}
		mlog.WT(mi18n.T("ボーン不足"), "%s", mi18n.T(keyName, map[string]interface{}{
			"Process": mi18n.T(process), "BoneName": boneName}))
		if isStandard && err == nil {
			err = merr.NewConfigError(boneName, mi18n.T("ボーン不足"))
		}
	}

	for _, v := range trunks {
		check(v.BoneName.String(), v.IsStandard)
	}
	for _, direction := range targetDirections {
		for _, v := range directions {
			check(v.BoneName.StringFromDirection(direction), v.IsStandard)
		}
	}

	return err
}
