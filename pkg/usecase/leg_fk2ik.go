package usecase

import (
	"context"
	"slices"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
	"github.com/miu200521358/motion_supporter/pkg/usecase/deform"
	"gonum.org/v1/gonum/stat"
)

// LegFkToIkUsecase は足FKの動きを足IKに変換する
type LegFkToIkUsecase struct{}

func NewLegFkToIkUsecase() *LegFkToIkUsecase {
	return &LegFkToIkUsecase{}
}

func (u *LegFkToIkUsecase) Exec(ctx context.Context, options *domain.LegFkToIkOptions) (*vmd.VmdMotion, error) {
	model := options.Model

	if err := domain.CheckBones(model, "足IK変換",
		[]domain.CheckTrunkBoneType{
			{BoneName: pmx.CENTER, IsStandard: true},
		},
		[]domain.CheckDirectionBoneType{
			{BoneName: pmx.LEG, IsStandard: true},
			{BoneName: pmx.KNEE, IsStandard: true},
			{BoneName: pmx.ANKLE, IsStandard: true},
			{BoneName: pmx.LEG_IK, IsStandard: true},
			{BoneName: pmx.TOE_IK, IsStandard: false},
		}); err != nil {
		return nil, err
	}

	motion, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}

	if options.AnkleHorizontal {
		if err := u.horizontalAnkle(ctx, options, motion); err != nil {
			return nil, err
		}
	}

	if err := u.normalizeGround(ctx, options, motion); err != nil {
		return nil, err
	}

	reference, err := motion.Copy()
	if err != nil {
		return nil, err
	}

	options.FilledMonitor().AddTotal(len(pmx.BONE_DIRECTIONS))
	if err := miter.RunTasks(ctx, workerCount(options), directionTasks(
		func(ctx context.Context, direction pmx.BoneDirection) error {
			defer options.FilledMonitor().Increment()
			bake, err := u.convert(ctx, options, reference, motion, direction)
			if err != nil {
				return err
			}
			if options.JitterLock {
				u.lockJitter(options, motion, direction)
				u.lockToeJitter(options, motion, bake)
			}
			return nil
		})); err != nil {
		return nil, err
	}

	pruneNames := make([]string, 0, 6)
	ikNames := make([]string, 0, 4)
	for _, direction := range pmx.BONE_DIRECTIONS {
		ikNames = append(ikNames, pmx.LEG_IK.StringFromDirection(direction), pmx.TOE_IK.StringFromDirection(direction))
		pruneNames = append(pruneNames, pmx.LEG_IK.StringFromDirection(direction))
		if options.AnkleHorizontal {
			pruneNames = append(pruneNames, pmx.ANKLE.StringFromDirection(direction))
		}
	}
	enableIk(motion, ikNames)

	if err := removeUnnecessaryBones(ctx, options, motion, pruneNames); err != nil {
		return nil, err
	}

	return motion, nil
}

// legIkBake は足IK変換で求めたフレームごとの足IKの親とつま先の位置
type legIkBake struct {
	legIkName      string
	frames         []int
	parentMatrices []*mmath.MMat4
	toePositions   []*mmath.MVec3 // つま先のワールド位置。つま先が無い場合は nil
	toeInitial     *mmath.MVec3   // 回転なしの足IKから見たつま先の初期位置
	offset         *mmath.MVec3   // 足IKの親から見た初期位置
}

// convert は1方向分の足IKを求める
func (u *LegFkToIkUsecase) convert(
	ctx context.Context, options *domain.LegFkToIkOptions, reference, motion *vmd.VmdMotion, direction pmx.BoneDirection,
) (*legIkBake, error) {
	model := options.Model
	legIkName := pmx.LEG_IK.StringFromDirection(direction)
	ankleName := pmx.ANKLE.StringFromDirection(direction)

	mlog.I("%s", mi18n.T("足IK変換開始", map[string]interface{}{"BoneName": legIkName}))

	legIk, _ := model.Bones.GetByName(legIkName)
	ankle, _ := model.Bones.GetByName(ankleName)

	fkLinks, err := model.Bones.CreateLinkToRoot(ankleName)
	if err != nil {
		return nil, err
	}
	ikLinks, err := model.Bones.CreateLinkToRoot(legIkName)
	if err != nil {
		return nil, err
	}

	// つま先の向きで足IKの回転を決める。つま先が無い場合は足首の向きをそのまま使う
	toeName, toeInitial := u.toeTarget(model, direction, legIk, ankle)
	var toeLinks *pmx.BoneLinks
	if toeName != "" {
		if toeLinks, err = model.Bones.CreateLinkToRoot(toeName); err != nil {
			return nil, err
		}
	}

	var ikParentName string
	if parent, err := model.Bones.Get(legIk.ParentIndex); err == nil {
		ikParentName = parent.Name()
	}

	boneNames := []string{pmx.LEG.StringFromDirection(direction), pmx.KNEE.StringFromDirection(direction), ankleName}
	for _, name := range []pmx.StandardBoneName{pmx.LOWER, pmx.CENTER, pmx.GROOVE, pmx.WAIST} {
		if model.Bones.ContainsByName(name.String()) {
			boneNames = append(boneNames, name.String())
		}
	}
	frames := reference.BoneFrames.IndexList(boneNames)
	if len(frames) == 0 {
		mlog.W("%s", mi18n.T("足IK変換キーなし", map[string]interface{}{"BoneName": legIkName}))
		return nil, nil
	}

	positions := make([]*mmath.MVec3, len(frames))
	rotations := make([]*mmath.MQuaternion, len(frames))
	bake := &legIkBake{
		legIkName:      legIkName,
		frames:         frames,
		parentMatrices: make([]*mmath.MMat4, len(frames)),
		toeInitial:     toeInitial,
		offset:         legIk.ParentRelativePosition,
	}
	if toeLinks != nil {
		bake.toePositions = make([]*mmath.MVec3, len(frames))
	}

	blockSize, _ := miter.GetBlockSize(len(frames))
	if err := miter.IterParallelByList(frames, blockSize, log_block_size,
		func(index, frame int) error {
			if err := miter.CheckTerminate(ctx); err != nil {
				return err
			}

			fkDeltas := deform.CalcGlobalPose(model, fkLinks, reference, frame, nil)
			ankleDelta := fkDeltas.Bones.GetByName(ankleName)

			parentMatrix := mmath.NewMMat4()
			if ikParentName != "" {
				parentMatrix = deform.CalcGlobalPose(model, ikLinks, reference, frame, nil).
					Bones.GetByName(ikParentName).FilledGlobalMatrix()
			}
			bake.parentMatrices[index] = parentMatrix

			// 足IKの親から見た足首の位置 - 初期位置
			positions[index] = parentMatrix.Inverted().MulVec3(ankleDelta.FilledGlobalPosition()).
				Subed(legIk.ParentRelativePosition)

			// 回転なしの足IKから見たつま先の向き
			ikMatrix := parentMatrix.Muled(mmath.NewMMat4ByTranslate(legIk.ParentRelativePosition.Added(positions[index])))
			if toeLinks != nil {
				toePos := deform.CalcGlobalPose(model, toeLinks, reference, frame, nil).
					Bones.GetByName(toeName).FilledGlobalPosition()
				bake.toePositions[index] = toePos
				toeLocal := ikMatrix.Inverted().MulVec3(toePos)
				rotations[index] = mmath.NewMQuaternionRotate(toeInitial, toeLocal)
			} else {
				rotations[index] = parentMatrix.Quaternion().Inverted().Muled(ankleDelta.FilledGlobalRotation())
			}

			return nil
		},
		func(iterIndex, allCount int) {
			processLog("足IK変換", iterIndex, allCount)
		}); err != nil {
		return nil, err
	}

	for i, frame := range frames {
		bf := motion.BoneFrames.Get(legIkName).Get(frame)
		bf.Position = positions[i]
		bf.Rotation = rotations[i].Normalized()
		motion.InsertBoneFrame(legIkName, bf)
	}

	return bake, nil
}

// toeTarget はつま先ボーン名と、回転なしの足IKから見たつま先の初期位置
func (u *LegFkToIkUsecase) toeTarget(
	model *pmx.PmxModel, direction pmx.BoneDirection, legIk, ankle *pmx.Bone,
) (string, *mmath.MVec3) {
	if toeIk, err := model.Bones.GetByName(pmx.TOE_IK.StringFromDirection(direction)); err == nil && toeIk.Ik != nil {
		if toe, err := model.Bones.Get(toeIk.Ik.BoneIndex); err == nil {
			return toe.Name(), toeIk.Position.Subed(legIk.Position)
		}
	}

	for _, childIndex := range ankle.ChildBoneIndexes {
		child, err := model.Bones.Get(childIndex)
		if err != nil || child.Position.NearEquals(ankle.Position, 1e-6) {
			continue
		}
		return child.Name(), child.Position.Subed(legIk.Position)
	}

	return "", nil
}

// lockJitter は足IKがほぼ止まっていて接地している区間の位置を区間の最初に揃える
func (u *LegFkToIkUsecase) lockJitter(options *domain.LegFkToIkOptions, motion *vmd.VmdMotion, direction pmx.BoneDirection) {
	legIkName := pmx.LEG_IK.StringFromDirection(direction)
	bnf := motion.BoneFrames.Get(legIkName)
	frames := bnf.IndexList()
	tolerance := options.FilledLegErrorTolerance()

	locked := 0
	for start := 0; start < len(frames); {
		startPos := bnf.Get(frames[start]).FilledPosition().Copy()
		if startPos.Y > tolerance {
			start++
			continue
		}

		end := start
		for end+1 < len(frames) {
			pos := bnf.Get(frames[end+1]).FilledPosition()
			if pos.Distance(startPos) >= tolerance || pos.Y > tolerance {
				break
			}
			end++
		}

		// 3フレーム以上の幅がある場合だけ固定する
		if frames[end]-frames[start] >= 2 {
			for i := start + 1; i <= end; i++ {
				bf := bnf.Get(frames[i])
				bf.Position = startPos.Copy()
				bnf.Insert(bf)
				locked++
			}
		}
		start = end + 1
	}

	mlog.D("足IKブレ固定 %s: %d", legIkName, locked)
}

// lockToeJitter はつま先がほぼ止まっていて接地している区間の足IKの位置を区間の最初に揃え、
// 回転は揃えた位置から見たつま先の向きで求め直す
func (u *LegFkToIkUsecase) lockToeJitter(options *domain.LegFkToIkOptions, motion *vmd.VmdMotion, bake *legIkBake) {
	if bake == nil || bake.toePositions == nil {
		return
	}

	bnf := motion.BoneFrames.Get(bake.legIkName)
	tolerance := options.FilledLegErrorTolerance()

	locked := 0
	for start := 0; start < len(bake.frames); {
		startToe := bake.toePositions[start]
		if startToe.Y > tolerance {
			start++
			continue
		}

		end := start
		for end+1 < len(bake.frames) {
			toe := bake.toePositions[end+1]
			if toe.Distance(startToe) >= tolerance || toe.Y > tolerance {
				break
			}
			end++
		}

		if bake.frames[end]-bake.frames[start] >= 2 {
			pinned := bnf.Get(bake.frames[start]).FilledPosition().Copy()
			for i := start + 1; i <= end; i++ {
				bf := bnf.Get(bake.frames[i])
				bf.Position = pinned.Copy()

				ikMatrix := bake.parentMatrices[i].Muled(mmath.NewMMat4ByTranslate(bake.offset.Added(pinned)))
				toeLocal := ikMatrix.Inverted().MulVec3(bake.toePositions[i])
				bf.Rotation = mmath.NewMQuaternionRotate(bake.toeInitial, toeLocal).Normalized()

				bnf.Insert(bf)
				locked++
			}
		}
		start = end + 1
	}

	mlog.D("つま先ブレ固定 %s: %d", bake.legIkName, locked)
}

// enableIk は表示・IKキーの指定IKを全てONにする
func enableIk(motion *vmd.VmdMotion, ikNames []string) {
	for _, kf := range motion.IkFrames.Values() {
		for _, ik := range kf.IkList {
			if slices.Contains(ikNames, ik.BoneName) {
				ik.Enabled = true
			}
		}
	}
}

// horizontalAnkle は回転のない足首キーを、足首からつま先が水平になるよう回転させる
func (u *LegFkToIkUsecase) horizontalAnkle(
	ctx context.Context, options *domain.LegFkToIkOptions, motion *vmd.VmdMotion,
) error {
	model := options.Model
	reference, err := motion.Copy()
	if err != nil {
		return err
	}

	for _, direction := range pmx.BONE_DIRECTIONS {
		if err := miter.CheckTerminate(ctx); err != nil {
			return err
		}

		ankleName := pmx.ANKLE.StringFromDirection(direction)
		ankle, _ := model.Bones.GetByName(ankleName)
		legIk, _ := model.Bones.GetByName(pmx.LEG_IK.StringFromDirection(direction))
		toeName, _ := u.toeTarget(model, direction, legIk, ankle)
		if toeName == "" {
			continue
		}
		toeLinks, err := model.Bones.CreateLinkToRoot(toeName)
		if err != nil {
			return err
		}

		count := 0
		for _, frame := range reference.BoneFrames.Get(ankleName).IndexList() {
			bf := motion.BoneFrames.Get(ankleName).Get(frame)
			if !bf.FilledRotation().IsIdent() {
				continue
			}

			deltas := deform.CalcGlobalPose(model, toeLinks, reference, frame, nil)
			ankleDelta := deltas.Bones.GetByName(ankleName)
			toeVector := deltas.Bones.GetByName(toeName).FilledGlobalPosition().Subed(ankleDelta.FilledGlobalPosition())
			horizontal := &mmath.MVec3{X: toeVector.X, Z: toeVector.Z}
			if horizontal.Length() < 1e-6 {
				continue
			}
			horizontal = horizontal.Normalized().MuledScalar(toeVector.Length())

			inv := ankleDelta.FilledGlobalRotation().Inverted()
			bf.Rotation = mmath.NewMQuaternionRotate(inv.MulVec3(toeVector), inv.MulVec3(horizontal))
			motion.InsertBoneFrame(ankleName, bf)
			count++
		}
		mlog.D("足首水平化 %s: %d", ankleName, count)
	}

	return nil
}

// groundPointNames は接地判定に使うボーン。かかと・つま先が無ければ足首
func groundPointNames(model *pmx.PmxModel) []string {
	names := make([]string, 0, 4)
	for _, direction := range pmx.BONE_DIRECTIONS {
		found := false
		for _, name := range []pmx.StandardBoneName{pmx.HEEL, pmx.TOE} {
			if model.Bones.ContainsByName(name.StringFromDirection(direction)) {
				names = append(names, name.StringFromDirection(direction))
				found = true
			}
		}
		if !found {
			names = append(names, pmx.ANKLE.StringFromDirection(direction))
		}
	}
	return names
}

// normalizeGround は接地補正。センター(グルーブがあればグルーブ)の移動で足元の高さを合わせる
func (u *LegFkToIkUsecase) normalizeGround(
	ctx context.Context, options *domain.LegFkToIkOptions, motion *vmd.VmdMotion,
) error {
	if options.GroundMode == "" || options.GroundMode == domain.GROUND_NONE {
		return nil
	}

	model := options.Model
	shiftName := pmx.CENTER.String()
	if model.Bones.ContainsByName(pmx.GROOVE.String()) && hasKeys(motion, pmx.GROOVE.String()) {
		shiftName = pmx.GROOVE.String()
	}

	mlog.I("%s", mi18n.T("接地補正", map[string]interface{}{"Mode": string(options.GroundMode), "BoneName": shiftName}))

	if options.GroundMode == domain.GROUND_STANCE_LOCK {
		return u.lockStance(ctx, options, motion, shiftName)
	}

	pointNames := groundPointNames(model)
	links, err := model.Bones.CreateLinksToRoot(pointNames...)
	if err != nil {
		return err
	}

	// 各フレームの足元の最低の高さ(初期姿勢からの差)
	frames := mmath.IntRanges(motion.BoneFrames.MaxFrame() + 1)
	heights := make([]float64, len(frames))
	blockSize, _ := miter.GetBlockSize(len(frames))
	if err := miter.IterParallelByList(frames, blockSize, log_block_size,
		func(index, frame int) error {
			if err := miter.CheckTerminate(ctx); err != nil {
				return err
			}
			deltas := deform.CalcGlobalPose(model, links, motion, frame, nil)
			for i, name := range pointNames {
				bd := deltas.Bones.GetByName(name)
				h := bd.FilledGlobalPosition().Y - bd.Bone.Position.Y
				if i == 0 || h < heights[index] {
					heights[index] = h
				}
			}
			return nil
		},
		func(iterIndex, allCount int) {
			processLog("接地補正", iterIndex, allCount)
		}); err != nil {
		return err
	}

	var offset float64
	switch options.GroundMode {
	case domain.GROUND_GLOBAL_MIN:
		offset = slices.Min(heights)
	case domain.GROUND_MEDIAN:
		sorted := slices.Clone(heights)
		slices.Sort(sorted)
		offset = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}

	if mmath.NearEquals(offset, 0, 1e-6) {
		return nil
	}

	shiftFrames := motion.BoneFrames.Get(shiftName).IndexList()
	if len(shiftFrames) == 0 {
		shiftFrames = []int{0}
	}
	for _, frame := range shiftFrames {
		bf := motion.BoneFrames.Get(shiftName).Get(frame)
		bf.Position = bf.FilledPosition().Added(&mmath.MVec3{Y: -offset})
		motion.InsertBoneFrame(shiftName, bf)
	}
	mlog.D("接地補正 %s: %.4f", shiftName, offset)

	return nil
}

// lockStance は固定区間の間、接地ボーンが区間開始時の水平位置・地面の高さに留まるよう shiftName を動かす
func (u *LegFkToIkUsecase) lockStance(
	ctx context.Context, options *domain.LegFkToIkOptions, motion *vmd.VmdMotion, shiftName string,
) error {
	model := options.Model
	shiftBone, err := model.Bones.GetByName(shiftName)
	if err != nil {
		return err
	}
	shiftLinks, err := model.Bones.CreateLinkToRoot(shiftName)
	if err != nil {
		return err
	}

	for _, lock := range options.StanceLocks {
		if err := miter.CheckTerminate(ctx); err != nil {
			return err
		}

		groundBone, err := model.Bones.GetByName(lock.GroundBone)
		if err != nil {
			mlog.W("%s", mi18n.T("接地ボーンなし", map[string]interface{}{"BoneName": lock.GroundBone}))
			continue
		}
		links, err := model.Bones.CreateLinkToRoot(lock.GroundBone)
		if err != nil {
			return err
		}

		reference, err := motion.Copy()
		if err != nil {
			return err
		}

		startPos := deform.CalcGlobalPose(model, links, reference, lock.Start, nil).
			Bones.GetByName(lock.GroundBone).FilledGlobalPosition()
		target := &mmath.MVec3{X: startPos.X, Y: groundBone.Position.Y, Z: startPos.Z}

		for frame := lock.Start; frame <= lock.End; frame++ {
			pos := deform.CalcGlobalPose(model, links, reference, frame, nil).
				Bones.GetByName(lock.GroundBone).FilledGlobalPosition()

			// ワールドでのずれを shiftName の親の空間に戻す
			worldDiff := target.Subed(pos)
			parentRot := mmath.NewMQuaternion()
			if parent, err := model.Bones.Get(shiftBone.ParentIndex); err == nil {
				parentRot = deform.CalcGlobalPose(model, shiftLinks, reference, frame, nil).
					Bones.GetByName(parent.Name()).FilledGlobalRotation()
			}

			bf := motion.BoneFrames.Get(shiftName).Get(frame)
			bf.Position = bf.FilledPosition().Added(parentRot.Inverted().MulVec3(worldDiff))
			motion.InsertBoneFrame(shiftName, bf)
		}
		mlog.D("接地固定 %s: %d-%d", lock.GroundBone, lock.Start, lock.End)
	}

	return nil
}
