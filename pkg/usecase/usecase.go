package usecase

import (
	"context"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
)

// フレーム単位の処理で進捗ログを出す間隔
var log_block_size = 1000

// SetProgressInterval は進捗ログの間隔を設定する。起動時に1度だけ呼ぶ
func SetProgressInterval(frames int) {
	if frames > 0 {
		log_block_size = frames
	}
}

// GetDifferFrames で使う閾値
const (
	differ_degrees = 20.0
	differ_length  = 0.5
)

func processLog(key string, iterIndex, allCount int) {
	mlog.I("%s", mi18n.T("処理進捗", map[string]interface{}{
		"Process": mi18n.T(key), "IterIndex": iterIndex, "AllCount": allCount}))
}

// workerCount は処理の並列数
func workerCount(op domain.Operation) int {
	common := op.Common()
	if common.ExecSaving {
		return 1
	}
	if common.MaxWorkers > 0 {
		return common.MaxWorkers
	}
	return miter.MaxWorkers(op.Kind().IsHeavy(), false)
}

// hasKeys はモーションにボーンのキーが1つ以上あるか
func hasKeys(motion *vmd.VmdMotion, boneName string) bool {
	return boneName != "" && motion.BoneFrames.Contains(boneName) && motion.BoneFrames.Get(boneName).Len() > 0
}

// registerFrames は各フレームの補間値をキーとして登録する。補間曲線は分割して形状を保つ
func registerFrames(motion *vmd.VmdMotion, boneNames []string, frames []int) {
	for _, name := range boneNames {
		if name == "" {
			continue
		}
		bnf := motion.BoneFrames.GetOrCreate(name)
		for _, f := range frames {
			bnf.Insert(bnf.Get(f))
		}
	}
}

// removeUnnecessaryBones は指定ボーンの不要キーを並列に削除する
func removeUnnecessaryBones(
	ctx context.Context, op domain.Operation, motion *vmd.VmdMotion, boneNames []string,
) error {
	common := op.Common()
	if !common.RemoveUnnecessary {
		return nil
	}

	tasks := make([]miter.Task, 0, len(boneNames))
	for _, name := range boneNames {
		name := name
		if !hasKeys(motion, name) {
			continue
		}
		rotatable, translatable := boneCapability(common.Model, name)
		tasks = append(tasks, func(ctx context.Context) error {
			bnf := motion.BoneFrames.Get(name)
			count := bnf.RemoveUnnecessary(bnf.MinFrame(), bnf.MaxFrame(), rotatable, translatable,
				common.FilledDegreeTolerance(), common.FilledLengthTolerance())
			mlog.D("不要キー削除 %s: %d", name, count)
			common.FilledMonitor().Increment()
			return nil
		})
	}

	mlog.I("%s", mi18n.T("不要キー削除", map[string]interface{}{"Count": len(tasks)}))
	common.FilledMonitor().AddTotal(len(tasks))
	return miter.RunTasks(ctx, workerCount(op), tasks)
}

// boneCapability はモデル上で回転・移動できるか。モデルに無い場合は両方可とする
func boneCapability(model *pmx.PmxModel, boneName string) (rotatable, translatable bool) {
	if model == nil {
		return true, true
	}
	bone, err := model.Bones.GetByName(boneName)
	if err != nil {
		return true, true
	}
	return bone.CanRotate(), bone.CanTranslate()
}

// startLog は処理開始のバナー
func startLog(op domain.Operation) {
	common := op.Common()
	params := map[string]interface{}{
		"Process": mi18n.T(op.Kind().String()),
		"Motion":  "",
		"Model":   "",
	}
	if common.Motion != nil {
		params["Motion"] = common.Motion.Path()
	}
	if common.Model != nil {
		params["Model"] = common.Model.Path()
	}
	mlog.IT(mi18n.T("処理開始"), "%s", mi18n.T("処理開始詳細", params))
}

// directionTasks は左右それぞれの処理を並列タスクにする
func directionTasks(f func(ctx context.Context, direction pmx.BoneDirection) error) []miter.Task {
	tasks := make([]miter.Task, 0, len(pmx.BONE_DIRECTIONS))
	for _, direction := range pmx.BONE_DIRECTIONS {
		direction := direction
		tasks = append(tasks, func(ctx context.Context) error {
			return f(ctx, direction)
		})
	}
	return tasks
}
