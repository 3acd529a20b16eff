package domain

// ParentOptions は全ての親移植の入力
type ParentOptions struct {
	CommonOptions
	CenterRotation bool // センターの回転を上半身・下半身に移す
}

func (o *ParentOptions) Kind() OperationKind { return OPERATION_PARENT }

// LegFkToIkOptions は足FK→IK変換の入力
type LegFkToIkOptions struct {
	CommonOptions
	GroundMode        GroundMode
	StanceLocks       []*StanceLock // GROUND_STANCE_LOCK の場合の固定区間
	AnkleHorizontal   bool          // 足首の水平化
	JitterLock        bool          // 足IKのブレ固定
	LegErrorTolerance float64       // ブレ固定の許容範囲
}

func (o *LegFkToIkOptions) Kind() OperationKind { return OPERATION_LEG_FK_TO_IK }

func (o *LegFkToIkOptions) FilledLegErrorTolerance() float64 {
	if o.LegErrorTolerance <= 0 {
		return 0.8
	}
	return o.LegErrorTolerance
}

type ArmIkToFkOptions struct {
	CommonOptions
}

func (o *ArmIkToFkOptions) Kind() OperationKind { return OPERATION_ARM_IK_TO_FK }

type ArmTwistOffOptions struct {
	CommonOptions
}

func (o *ArmTwistOffOptions) Kind() OperationKind { return OPERATION_ARM_TWIST_OFF }

type MultiSplitOptions struct {
	CommonOptions
	Targets []*SplitTarget
}

func (o *MultiSplitOptions) Kind() OperationKind { return OPERATION_MULTI_SPLIT }

type MultiJoinOptions struct {
	CommonOptions
	Targets []*JoinTarget
}

func (o *MultiJoinOptions) Kind() OperationKind { return OPERATION_MULTI_JOIN }

// NoiseOptions はゆらぎ複製の入力
type NoiseOptions struct {
	CommonOptions
	NoiseSize   int    // ゆらぎの大きさ
	CopyCount   int    // 複製数
	FingerNoise bool   // 指にもゆらぎを付ける
	Motivation  bool   // 複製ごとに全体を拡大縮小する
	Seed        uint64 // 複製ごとの乱数は Seed + 複製番号
}

func (o *NoiseOptions) Kind() OperationKind { return OPERATION_NOISE }

func (o *NoiseOptions) FilledCopyCount() int {
	return max(1, o.CopyCount)
}

type MorphConditionOptions struct {
	CommonOptions
	Conditions []*MorphCondition
}

func (o *MorphConditionOptions) Kind() OperationKind { return OPERATION_MORPH_CONDITION }

// SmoothOptions はスムージングの入力。BoneNames が空の場合はキーのある全ボーン
type SmoothOptions struct {
	CommonOptions
	BoneNames []string
	LoopCount int
	Mode      SmoothMode
}

func (o *SmoothOptions) Kind() OperationKind { return OPERATION_SMOOTH }

func (o *SmoothOptions) FilledLoopCount() int {
	return max(1, o.LoopCount)
}

// TrajectoryOptions は軌跡モデル生成の入力。Model は使わない
type TrajectoryOptions struct {
	CommonOptions
}

func (o *TrajectoryOptions) Kind() OperationKind { return OPERATION_TRAJECTORY }
