package deform

import (
	"fmt"
	"math"

	"github.com/miu200521358/motion_supporter/pkg/config/mconfig"
	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
)

// IkPolicy はIKの収束判定
type IkPolicy struct {
	Epsilon    float64 // この距離未満で収束
	NoiseFloor float64 // 差分の全軸がこれ以下なら打ち切り
}

func NewIkPolicy(config *mconfig.AppConfig) IkPolicy {
	return IkPolicy{Epsilon: config.IkEpsilon, NoiseFloor: config.IkNoiseFloor}
}

func DefaultIkPolicy() IkPolicy {
	return IkPolicy{Epsilon: 0.1, NoiseFloor: 0.05}
}

// IkResult はIK計算結果
type IkResult struct {
	Iterations   int
	Distances    []float64 // 各ループ終了時点での最良距離
	BestDistance float64
	Converged    bool
}

// NewIkChain はIKボーンの定義から、軸制限ボーンを除いたIKリンクを構築する。
// ターゲットやリンクが存在しない場合は ConfigError
func NewIkChain(model *pmx.PmxModel, ikBone *pmx.Bone) (*pmx.Ik, error) {
	if ikBone.Ik == nil {
		return nil, merr.NewConfigError(ikBone.Name(), "IK定義がありません")
	}
	if !model.Bones.Contains(ikBone.Ik.BoneIndex) {
		return nil, merr.NewConfigError(ikBone.Name(), fmt.Sprintf("IKターゲット[%d]がありません", ikBone.Ik.BoneIndex))
	}

	ik := pmx.NewIk()
	ik.BoneIndex = ikBone.Ik.BoneIndex
	ik.LoopCount = ikBone.Ik.LoopCount
	ik.UnitRotation = ikBone.Ik.UnitRotation.Copy()

	for _, link := range ikBone.Ik.Links {
		linkBone, err := model.Bones.Get(link.BoneIndex)
		if err != nil {
			return nil, merr.NewConfigError(ikBone.Name(), fmt.Sprintf("IKリンク[%d]がありません", link.BoneIndex))
		}
		if linkBone.HasFixedAxis() {
			// 捩りボーンはIK対象外
			continue
		}
		ik.Links = append(ik.Links, link)
	}

	return ik, nil
}

// SolveIk はCCDで effectorLinks の末端を target に近付けるよう ik のリンクの回転を motion に書き込む。
// 最良の結果を保持し、最終的にその回転を書き戻す
func SolveIk(
	model *pmx.PmxModel, effectorLinks *pmx.BoneLinks, motion *vmd.VmdMotion, frame int,
	target *mmath.MVec3, ik *pmx.Ik, maxCount int, policy IkPolicy,
) (*IkResult, error) {
	effector := effectorLinks.Last()
	if effector == nil {
		return nil, merr.NewConfigError("", "IKエフェクタがありません")
	}

	linkBones := make([]*pmx.Bone, 0, len(ik.Links))
	for _, link := range ik.Links {
		linkBone, err := model.Bones.Get(link.BoneIndex)
		if err != nil {
			return nil, merr.NewConfigError(effector.Name(), fmt.Sprintf("IKリンク[%d]がありません", link.BoneIndex))
		}
		if !effectorLinks.Contains(linkBone.Name()) {
			return nil, merr.NewConfigError(linkBone.Name(), "IKリンクがエフェクタの親にありません")
		}
		linkBones = append(linkBones, linkBone)
	}

	result := &IkResult{Distances: make([]float64, 0, maxCount)}

	effectorPos := CalcGlobalPose(model, effectorLinks, motion, frame, nil).Bones.GetByName(effector.Name()).FilledGlobalPosition()
	result.BestDistance = effectorPos.Distance(target)
	bestRotations := currentRotations(motion, linkBones, frame)
	prevDistance := -1.0

	for loop := 0; loop < maxCount; loop++ {
		if result.BestDistance < policy.Epsilon {
			result.Converged = true
			break
		}

		for i, link := range ik.Links {
			linkBone := linkBones[i]
			if !linkBone.CanRotate() {
				continue
			}

			deltas := CalcGlobalPose(model, effectorLinks, motion, frame, nil)
			linkInv := deltas.Bones.GetByName(linkBone.Name()).FilledGlobalMatrix().Inverted()
			localEffector := linkInv.MulVec3(deltas.Bones.GetByName(effector.Name()).FilledGlobalPosition())
			localTarget := linkInv.MulVec3(target)
			if localEffector.Length() < 1e-8 || localTarget.Length() < 1e-8 {
				continue
			}

			correction := mmath.NewMQuaternionRotate(localEffector.Normalized(), localTarget.Normalized())
			correction = limitUnitRotation(correction, ik.UnitRotation.X)

			bf := motion.BoneFrames.Get(linkBone.Name()).Get(frame)
			rot := bf.FilledRotation().Muled(correction)
			if link.AngleLimit {
				rot = limitAngle(rot, link.MinAngleLimit, link.MaxAngleLimit)
			}
			bf.Rotation = rot.Normalized()
			motion.InsertBoneFrame(linkBone.Name(), bf)
		}

		effectorPos = CalcGlobalPose(model, effectorLinks, motion, frame, nil).Bones.GetByName(effector.Name()).FilledGlobalPosition()
		distance := effectorPos.Distance(target)
		result.Iterations = loop + 1

		if distance < result.BestDistance {
			result.BestDistance = distance
			bestRotations = currentRotations(motion, linkBones, frame)
		}
		result.Distances = append(result.Distances, result.BestDistance)

		if mlog.IsVerbose() {
			mlog.V("[IK] %s f=%d loop=%d distance=%.5f best=%.5f", effector.Name(), frame, loop, distance, result.BestDistance)
		}

		if distance < policy.Epsilon {
			result.Converged = true
			break
		}
		if distance == prevDistance {
			// 同じ結果の繰り返し
			break
		}
		if effectorPos.Subed(target).MaxAbs() <= policy.NoiseFloor {
			result.Converged = true
			break
		}
		prevDistance = distance
	}

	// 最良の結果を書き戻す
	for i, linkBone := range linkBones {
		bf := motion.BoneFrames.Get(linkBone.Name()).Get(frame)
		bf.Rotation = bestRotations[i]
		motion.InsertBoneFrame(linkBone.Name(), bf)
	}

	return result, nil
}

func currentRotations(motion *vmd.VmdMotion, bones []*pmx.Bone, frame int) []*mmath.MQuaternion {
	rotations := make([]*mmath.MQuaternion, len(bones))
	for i, bone := range bones {
		rotations[i] = motion.BoneFrames.Get(bone.Name()).Get(frame).FilledRotation().Copy()
	}
	return rotations
}

// limitUnitRotation は1回あたりの回転量を unitRad までに制限する
func limitUnitRotation(q *mmath.MQuaternion, unitRad float64) *mmath.MQuaternion {
	if unitRad <= 0 {
		return q
	}
	q = q.Shorten()
	rad := q.ToRadian()
	if rad <= unitRad {
		return q
	}
	s := math.Sqrt(1 - q.W*q.W)
	if s < 1e-10 {
		return q
	}
	axis := &mmath.MVec3{X: q.X / s, Y: q.Y / s, Z: q.Z / s}
	return mmath.NewMQuaternionFromAxisAngles(axis, unitRad)
}

// limitAngle はオイラー角(ラジアン)で各軸を制限する
func limitAngle(q *mmath.MQuaternion, minAngle, maxAngle *mmath.MVec3) *mmath.MQuaternion {
	euler := q.ToEulerAngles()
	euler.X = mmath.Clamped(euler.X, minAngle.X, maxAngle.X)
	euler.Y = mmath.Clamped(euler.Y, minAngle.Y, maxAngle.Y)
	euler.Z = mmath.Clamped(euler.Z, minAngle.Z, maxAngle.Z)
	return mmath.NewMQuaternionFromRadians(euler.X, euler.Y, euler.Z)
}
