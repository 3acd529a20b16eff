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

// SmoothUsecase はボーンの動きを全フレーム焼き込んで平滑化する
type SmoothUsecase struct{}

func NewSmoothUsecase() *SmoothUsecase {
	return &SmoothUsecase{}
}

func (u *SmoothUsecase) Exec(ctx context.Context, options *domain.SmoothOptions) (*vmd.VmdMotion, error) {
	motion, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}

	boneNames := options.BoneNames
	if len(boneNames) == 0 {
		boneNames = motion.BoneFrames.Names()
	}

	tasks := make([]miter.Task, 0, len(boneNames))
	pruneNames := make([]string, 0, len(boneNames))
	for _, name := range mmath.UniqueSorted(boneNames) {
		name := name
		if !hasKeys(motion, name) {
			mlog.W("%s", mi18n.T("スムージングキーなし", map[string]interface{}{"BoneName": name}))
			continue
		}
		pruneNames = append(pruneNames, name)
		tasks = append(tasks, func(ctx context.Context) error {
			defer options.FilledMonitor().Increment()
			return u.smooth(ctx, options, motion, name)
		})
	}

	options.FilledMonitor().AddTotal(len(tasks))
	if err := miter.RunTasks(ctx, workerCount(options), tasks); err != nil {
		return nil, err
	}

	if err := removeUnnecessaryBones(ctx, options, motion, pruneNames); err != nil {
		return nil, err
	}

	return motion, nil
}

func (u *SmoothUsecase) smooth(ctx context.Context, options *domain.SmoothOptions, motion *vmd.VmdMotion, name string) error {
	source := motion.BoneFrames.Get(name).Copy()
	if options.Mode == domain.SMOOTH_LINEAR {
		// 既存キーの補間曲線を線形にしてから焼き込む
		for _, frame := range source.IndexList() {
			bf := source.Get(frame)
			bf.Curves = vmd.NewBoneCurves()
			source.Append(bf)
		}
	}

	frames := mmath.IntRangesByStep(source.MinFrame(), source.MaxFrame(), 1)
	if len(frames) < 3 {
		return nil
	}

	positions := make([]*mmath.MVec3, len(frames))
	rotations := make([]*mmath.MQuaternion, len(frames))
	for i, frame := range frames {
		bf := source.Get(frame)
		positions[i] = bf.FilledPosition().Copy()
		rotations[i] = bf.FilledRotation().Copy()
	}

	loopCount := options.FilledLoopCount()
	for loop := 0; loop < loopCount; loop++ {
		if err := miter.CheckTerminate(ctx); err != nil {
			return err
		}

		// 最初と最後は動かさない
		nextPositions := make([]*mmath.MVec3, len(frames))
		nextRotations := make([]*mmath.MQuaternion, len(frames))
		nextPositions[0], nextPositions[len(frames)-1] = positions[0], positions[len(frames)-1]
		nextRotations[0], nextRotations[len(frames)-1] = rotations[0], rotations[len(frames)-1]

		for i := 1; i < len(frames)-1; i++ {
			nextPositions[i] = positions[i-1].Added(positions[i].MuledScalar(2)).Added(positions[i+1]).MuledScalar(0.25)
			nextRotations[i] = rotations[i].Slerp(rotations[i-1].Slerp(rotations[i+1], 0.5), 0.5).Normalized()
		}
		positions, rotations = nextPositions, nextRotations

		processLog("スムージング", loop+1, loopCount)
	}

	smoothed := vmd.NewBoneNameFrames(name)
	for i, frame := range frames {
		bf := vmd.NewBoneFrame(frame)
		bf.Registered = true
		bf.Position = positions[i]
		bf.Rotation = rotations[i]
		bf.Curves = vmd.NewBoneCurves()
		smoothed.Append(bf)
	}
	motion.BoneFrames.Update(smoothed)

	mlog.I("%s", mi18n.T("スムージング", map[string]interface{}{"BoneName": name, "Count": len(frames), "LoopCount": loopCount}))

	return nil
}
