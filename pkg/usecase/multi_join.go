package usecase

import (
	"context"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
)

// MultiJoinUsecase は軸ごとのボーンの回転・移動を1ボーンにまとめる
type MultiJoinUsecase struct{}

func NewMultiJoinUsecase() *MultiJoinUsecase {
	return &MultiJoinUsecase{}
}

func (u *MultiJoinUsecase) Exec(ctx context.Context, options *domain.MultiJoinOptions) (*vmd.VmdMotion, error) {
	motion, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}
	reference, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}

	tasks := make([]miter.Task, 0, len(options.Targets))
	pruneNames := make([]string, 0, len(options.Targets))
	names := make([]string, 0)
	for _, target := range options.Targets {
		target := target
		frames := reference.BoneFrames.IndexList(target.SourceNames())
		if len(frames) == 0 {
			mlog.W("%s", mi18n.T("統合元キーなし", map[string]interface{}{"BoneName": target.Dest}))
			continue
		}
		pruneNames = append(pruneNames, target.Dest)
		names = append(names, target.Dest)
		names = append(names, target.SourceNames()...)

		tasks = append(tasks, func(ctx context.Context) error {
			defer options.FilledMonitor().Increment()
			return u.join(ctx, reference, motion, target, frames)
		})
	}

	workers := workerCount(options)
	if hasDuplicateNames(names) {
		workers = 1
	}

	options.FilledMonitor().AddTotal(len(tasks))
	if err := miter.RunTasks(ctx, workers, tasks); err != nil {
		return nil, err
	}

	if err := removeUnnecessaryBones(ctx, options, motion, pruneNames); err != nil {
		return nil, err
	}

	return motion, nil
}

func (u *MultiJoinUsecase) join(
	ctx context.Context, reference, motion *vmd.VmdMotion, target *domain.JoinTarget, frames []int,
) error {
	mlog.I("%s", mi18n.T("多段統合開始", map[string]interface{}{
		"BoneName": target.Dest, "SourceNames": target.SourceNames()}))

	rotationNames := target.RotationNames()
	positionNames := target.PositionNames()

	// 統合先自身が統合元に含まれない場合、統合先の元の値に重ねる
	destIsSource := false
	for _, name := range target.SourceNames() {
		if name == target.Dest {
			destIsSource = true
		}
	}

	values := make([]*vmd.BoneFrame, len(frames))
	for i, frame := range frames {
		if i%log_block_size == 0 {
			if err := miter.CheckTerminate(ctx); err != nil {
				return err
			}
			processLog("多段統合", i, len(frames))
		}

		bf := vmd.NewBoneFrame(frame)
		bf.Registered = true
		bf.Rotation = mmath.NewMQuaternion()
		bf.Position = mmath.NewMVec3()
		bf.Curves = vmd.NewBoneCurves()
		if !destIsSource {
			original := reference.BoneFrames.Get(target.Dest).Get(frame)
			bf.Rotation = original.FilledRotation().Copy()
			bf.Position = original.FilledPosition().Copy()
			bf.Curves = original.FilledCurves().Copy()
		}

		// 同じボーンを複数軸に指定している場合、回転は1回だけ掛ける
		used := make(map[string]struct{}, 3)
		rot := mmath.NewMQuaternion()
		for _, axis := range []int{1, 0, 2} {
			name := rotationNames[axis]
			if name == "" {
				continue
			}
			if _, ok := used[name]; ok {
				continue
			}
			used[name] = struct{}{}
			sourceBf := reference.BoneFrames.Get(name).Get(frame)
			rot = rot.Muled(sourceBf.FilledRotation())
			if reference.BoneFrames.Get(name).Contains(frame) {
				bf.Curves.Rotate = sourceBf.FilledCurves().Rotate.Copy()
			}
		}
		bf.Rotation = rot.Muled(bf.Rotation).Normalized()

		for axis, name := range positionNames {
			if name == "" {
				continue
			}
			sourceBf := reference.BoneFrames.Get(name).Get(frame)
			bf.Position.Set(axis, bf.Position.Get(axis)+sourceBf.FilledPosition().Get(axis))
			if reference.BoneFrames.Get(name).Contains(frame) {
				bf.Curves.SetTranslate(axis, sourceBf.FilledCurves().Translate(axis).Copy())
			}
		}

		values[i] = bf
	}

	for _, name := range target.SourceNames() {
		if name != target.Dest {
			motion.BoneFrames.Delete(name)
		}
	}

	if destIsSource {
		// 統合先の元のキーは統合結果で置き換える
		motion.BoneFrames.Update(vmd.NewBoneNameFrames(target.Dest))
	}
	for _, bf := range values {
		motion.AppendBoneFrame(target.Dest, bf)
	}

	return nil
}
