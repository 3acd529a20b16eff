package usecase

import (
	"context"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
)

// 分割時のキー抽出の閾値
const (
	split_differ_degrees = 20.0
	split_differ_length  = 1.0
)

// MultiSplitUsecase は1ボーンの回転・移動を軸ごとのボーンに分割する
type MultiSplitUsecase struct{}

func NewMultiSplitUsecase() *MultiSplitUsecase {
	return &MultiSplitUsecase{}
}

func (u *MultiSplitUsecase) Exec(ctx context.Context, options *domain.MultiSplitOptions) (*vmd.VmdMotion, error) {
	motion, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}
	reference, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}

	tasks := make([]miter.Task, 0, len(options.Targets))
	pruneNames := make([]string, 0)
	for _, target := range options.Targets {
		target := target
		if !hasKeys(reference, target.Source) {
			mlog.W("%s", mi18n.T("分割元キーなし", map[string]interface{}{"BoneName": target.Source}))
			continue
		}
		pruneNames = append(pruneNames, target.TargetNames()...)
		tasks = append(tasks, func(ctx context.Context) error {
			defer options.FilledMonitor().Increment()
			return u.split(ctx, options, reference, motion, target)
		})
	}

	workers := workerCount(options)
	if hasDuplicateNames(splitTargetNames(options.Targets)) {
		// 同じボーンに複数の分割結果を書き込む場合は順番に処理する
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

func (u *MultiSplitUsecase) split(
	ctx context.Context, options *domain.MultiSplitOptions, reference, motion *vmd.VmdMotion, target *domain.SplitTarget,
) error {
	mlog.I("%s", mi18n.T("多段分割開始", map[string]interface{}{
		"BoneName": target.Source, "TargetNames": target.TargetNames()}))

	// 分割先に元からあるキーも書き直す
	destNames := make([]string, 0, len(target.TargetNames()))
	for _, name := range target.TargetNames() {
		if name != target.Source {
			destNames = append(destNames, name)
		}
	}
	frames := reference.GetDifferFrames([]string{target.Source}, split_differ_degrees, split_differ_length)
	frames = mmath.UniqueSorted(append(frames, reference.BoneFrames.IndexList(destNames)...))

	// 分割元を分割するフレームで登録し直して、補間曲線を各フレーム区間に合わせておく
	source := reference.BoneFrames.Get(target.Source).Copy()
	for _, f := range frames {
		source.Insert(source.Get(f))
	}

	useLocalAxis := false
	localAxis := mmath.MVec3UnitX.Copy()
	if options.Model != nil {
		if bone, err := options.Model.Bones.GetByName(target.Source); err == nil && bone.IsArmLike() {
			useLocalAxis = true
			localAxis = options.Model.Bones.LocalAxisX(target.Source)
		}
	}
	separate := func(rot *mmath.MQuaternion) [3]*mmath.MQuaternion {
		return separateRotation(rot, useLocalAxis, localAxis)
	}
	abilities := splitAbilities(options.Model, target)

	u.bake(reference, motion, source, target, frames, abilities, separate)

	if err := miter.CheckTerminate(ctx); err != nil {
		return err
	}

	// 中間フレームで分割結果が元から外れている区間は全フレーム登録する
	options.FilledMonitor().AddTotal(len(frames))
	extras := make([]int, 0)
	for i := 1; i < len(frames); i++ {
		options.FilledMonitor().Increment()
		prev, next := frames[i-1], frames[i]
		if next-prev < 2 {
			continue
		}
		mid := (prev + next) / 2
		if u.isDeviated(options, reference, motion, source, target, mid, abilities, separate) {
			for f := prev + 1; f < next; f++ {
				extras = append(extras, f)
			}
		}
	}

	if len(extras) > 0 {
		mlog.D("多段分割 %s: 追加フレーム %d", target.Source, len(extras))
		for _, f := range extras {
			source.Insert(source.Get(f))
		}
		frames = mmath.UniqueSorted(append(frames, extras...))
		u.bake(reference, motion, source, target, frames, abilities, separate)
	}

	isTarget := false
	for _, name := range target.TargetNames() {
		if name == target.Source {
			isTarget = true
		}
	}
	if !isTarget {
		motion.BoneFrames.Delete(target.Source)
	}

	return nil
}

// boneAbility は分割先ボーンが受け取れる成分
type boneAbility struct {
	rotatable    bool
	translatable bool
}

// splitAbilities は分割先ごとの回転・移動可否。モデルがない場合は全て受け取る
func splitAbilities(model *pmx.PmxModel, target *domain.SplitTarget) map[string]boneAbility {
	abilities := make(map[string]boneAbility, len(target.TargetNames()))
	for _, name := range target.TargetNames() {
		rotatable, translatable := boneCapability(model, name)
		abilities[name] = boneAbility{rotatable: rotatable, translatable: translatable}
		if !rotatable || !translatable {
			mlog.D("多段分割 %s: 回転可=%v 移動可=%v", name, rotatable, translatable)
		}
	}
	return abilities
}

// bake は frames の各フレームで分割元の値を分割先に書き込む。補間曲線は分割元のものを使う。
// 分割先が受け取れない成分は書き込まない
func (u *MultiSplitUsecase) bake(
	reference, motion *vmd.VmdMotion, source *vmd.BoneNameFrames, target *domain.SplitTarget,
	frames []int, abilities map[string]boneAbility, separate func(*mmath.MQuaternion) [3]*mmath.MQuaternion,
) {
	rotationNames := target.RotationNames()
	positionNames := target.PositionNames()

	for i, frame := range frames {
		if i > 0 && i%log_block_size == 0 {
			processLog("多段分割", i, len(frames))
		}

		sourceBf := source.Get(frame)
		parts := separate(sourceBf.FilledRotation())
		sourceCurves := sourceBf.FilledCurves()

		for _, name := range target.TargetNames() {
			bf := u.splitFrame(reference, target.Source, name, frame)
			ability := abilities[name]

			// Z, X, Y の順に左から掛けて Y*X*Z にする
			for _, axis := range []int{2, 0, 1} {
				if rotationNames[axis] == name && ability.rotatable {
					bf.Rotation = parts[axis].Muled(bf.FilledRotation())
					bf.Curves.Rotate = sourceCurves.Rotate.Copy()
				}
			}
			for axis, positionName := range positionNames {
				if positionName == name && ability.translatable {
					bf.Position.Set(axis, bf.Position.Get(axis)+sourceBf.FilledPosition().Get(axis))
					bf.Curves.SetTranslate(axis, sourceCurves.Translate(axis).Copy())
				}
			}

			motion.AppendBoneFrame(name, bf)
		}
	}
}

// splitFrame は分割先の元の値から書き込み用のキーを作る。分割元自身が分割先の場合は初期値から
func (u *MultiSplitUsecase) splitFrame(reference *vmd.VmdMotion, sourceName, name string, frame int) *vmd.BoneFrame {
	bf := vmd.NewBoneFrame(frame)
	bf.Registered = true
	bf.Rotation = mmath.NewMQuaternion()
	bf.Position = mmath.NewMVec3()
	bf.Curves = vmd.NewBoneCurves()

	if name != sourceName {
		original := reference.BoneFrames.Get(name).Get(frame)
		bf.Rotation = original.FilledRotation().Copy()
		bf.Position = original.FilledPosition().Copy()
		bf.Curves = original.FilledCurves().Copy()
	}
	return bf
}

func (u *MultiSplitUsecase) isDeviated(
	options *domain.MultiSplitOptions, reference, motion *vmd.VmdMotion, source *vmd.BoneNameFrames,
	target *domain.SplitTarget, frame int, abilities map[string]boneAbility,
	separate func(*mmath.MQuaternion) [3]*mmath.MQuaternion,
) bool {
	sourceBf := source.Get(frame)
	parts := separate(sourceBf.FilledRotation())
	rotationNames := target.RotationNames()
	positionNames := target.PositionNames()

	for _, name := range target.TargetNames() {
		expected := u.splitFrame(reference, target.Source, name, frame)
		ability := abilities[name]
		for _, axis := range []int{2, 0, 1} {
			if rotationNames[axis] == name && ability.rotatable {
				expected.Rotation = parts[axis].Muled(expected.Rotation)
			}
		}
		for axis, positionName := range positionNames {
			if positionName == name && ability.translatable {
				expected.Position.Set(axis, expected.Position.Get(axis)+sourceBf.FilledPosition().Get(axis))
			}
		}

		actual := motion.BoneFrames.Get(name).Get(frame)
		if actual.FilledRotation().AngleDegrees(expected.Rotation) > options.FilledDegreeTolerance() ||
			actual.FilledPosition().Distance(expected.Position) > options.FilledLengthTolerance() {
			return true
		}
	}
	return false
}

// separateRotation は回転を X, Y, Z 成分に分ける(Y*X*Z で元に戻る)。
// 腕系はローカルX軸基準、それ以外はオイラー角で分ける
func separateRotation(rot *mmath.MQuaternion, useLocalAxis bool, localAxis *mmath.MVec3) [3]*mmath.MQuaternion {
	if useLocalAxis {
		x, y, z, _ := rot.SeparateByAxis(localAxis)
		return [3]*mmath.MQuaternion{x, y, z}
	}

	euler := rot.ToEulerAngles()
	return [3]*mmath.MQuaternion{
		mmath.NewMQuaternionFromAxisAngles(mmath.MVec3UnitX, euler.X),
		mmath.NewMQuaternionFromAxisAngles(mmath.MVec3UnitY, euler.Y),
		mmath.NewMQuaternionFromAxisAngles(mmath.MVec3UnitZ, euler.Z),
	}
}

func splitTargetNames(targets []*domain.SplitTarget) []string {
	names := make([]string, 0)
	for _, target := range targets {
		names = append(names, target.TargetNames()...)
		names = append(names, target.Source)
	}
	return names
}

// hasDuplicateNames は名前が重複しているか
func hasDuplicateNames(names []string) bool {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return true
		}
		seen[name] = struct{}{}
	}
	return false
}
