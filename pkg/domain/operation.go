package domain

import (
	"time"

	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
)

// OperationKind は変換処理の種類
type OperationKind int

const (
	OPERATION_PARENT OperationKind = iota
	OPERATION_LEG_FK_TO_IK
	OPERATION_ARM_IK_TO_FK
	OPERATION_ARM_TWIST_OFF
	OPERATION_MULTI_SPLIT
	OPERATION_MULTI_JOIN
	OPERATION_NOISE
	OPERATION_MORPH_CONDITION
	OPERATION_SMOOTH
	OPERATION_TRAJECTORY
)

var operationNames = map[OperationKind]string{
	OPERATION_PARENT:          "parent",
	OPERATION_LEG_FK_TO_IK:    "leg_fk2ik",
	OPERATION_ARM_IK_TO_FK:    "arm_ik2fk",
	OPERATION_ARM_TWIST_OFF:   "arm_twist_off",
	OPERATION_MULTI_SPLIT:     "multi_split",
	OPERATION_MULTI_JOIN:      "multi_join",
	OPERATION_NOISE:           "noise",
	OPERATION_MORPH_CONDITION: "morph_condition",
	OPERATION_SMOOTH:          "smooth",
	OPERATION_TRAJECTORY:      "trajectory",
}

// 出力ファイル名に付ける接尾辞
var operationSuffixes = map[OperationKind]string{
	OPERATION_PARENT:          "P",
	OPERATION_LEG_FK_TO_IK:    "L",
	OPERATION_ARM_IK_TO_FK:    "F",
	OPERATION_ARM_TWIST_OFF:   "T",
	OPERATION_MULTI_SPLIT:     "D",
	OPERATION_MULTI_JOIN:      "J",
	OPERATION_NOISE:           "N",
	OPERATION_MORPH_CONDITION: "M",
	OPERATION_SMOOTH:          "S",
	OPERATION_TRAJECTORY:      "trajectory",
}

func (k OperationKind) String() string {
	if name, ok := operationNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k OperationKind) Suffix() string {
	return operationSuffixes[k]
}

// IsHeavy はIK計算等で1タスクが重い処理か
func (k OperationKind) IsHeavy() bool {
	switch k {
	case OPERATION_LEG_FK_TO_IK, OPERATION_ARM_IK_TO_FK, OPERATION_NOISE, OPERATION_MORPH_CONDITION:
		return true
	}
	return false
}

// ParseOperationKind は名前から処理の種類を返す
func ParseOperationKind(name string) (OperationKind, bool) {
	for kind, n := range operationNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// OperationKinds は全処理の一覧
func OperationKinds() []OperationKind {
	kinds := make([]OperationKind, 0, len(operationNames))
	for kind := OPERATION_PARENT; kind <= OPERATION_TRAJECTORY; kind++ {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Operation は1回分の変換処理の入力
type Operation interface {
	Kind() OperationKind
	Common() *CommonOptions
}

// CommonOptions は全処理共通の入力
type CommonOptions struct {
	Motion            *vmd.VmdMotion
	Model             *pmx.PmxModel
	OutputPath        string  // 空の場合は保存しない
	MaxWorkers        int     // 0 の場合は処理の種類で決める
	ExecSaving        bool    // 並列数を1にする
	RemoveUnnecessary bool    // 不要キー削除
	DegreeTolerance   float64 // 不要キー削除の許容角度(度)
	LengthTolerance   float64 // 不要キー削除の許容距離
	IkMaxCount        int
	Monitor           Monitor
}

func (o *CommonOptions) Common() *CommonOptions {
	return o
}

// FilledMonitor は進捗通知先。未指定の場合は何もしない
func (o *CommonOptions) FilledMonitor() Monitor {
	if o.Monitor == nil {
		return NopMonitor{}
	}
	return o.Monitor
}

func (o *CommonOptions) FilledDegreeTolerance() float64 {
	if o.DegreeTolerance <= 0 {
		return 0.5
	}
	return o.DegreeTolerance
}

func (o *CommonOptions) FilledLengthTolerance() float64 {
	if o.LengthTolerance <= 0 {
		return 0.05
	}
	return o.LengthTolerance
}

func (o *CommonOptions) FilledIkMaxCount() int {
	if o.IkMaxCount <= 0 {
		return 10
	}
	return o.IkMaxCount
}

// Outcome は処理結果の種類
type Outcome int

const (
	OUTCOME_SUCCEEDED Outcome = iota
	OUTCOME_FAILED
	OUTCOME_KILLED
)

func (o Outcome) String() string {
	switch o {
	case OUTCOME_SUCCEEDED:
		return "succeeded"
	case OUTCOME_FAILED:
		return "failed"
	case OUTCOME_KILLED:
		return "killed"
	}
	return "unknown"
}

// Output は1ファイル分の出力
type Output struct {
	Path   string
	Motion *vmd.VmdMotion
	Model  *pmx.PmxModel
}

// Result は処理全体の結果
type Result struct {
	Kind           OperationKind
	Outcome        Outcome
	Outputs        []*Output
	Err            error
	DiagnosticPath string // 失敗時のスタックトレース保存先
	Elapsed        time.Duration
}

func (r *Result) Succeeded() bool {
	return r.Outcome == OUTCOME_SUCCEEDED
}

// Motion は最初の出力モーション
func (r *Result) Motion() *vmd.VmdMotion {
	for _, output := range r.Outputs {
		if output.Motion != nil {
			return output.Motion
		}
	}
	return nil
}
