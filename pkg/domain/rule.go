package domain

import (
	"strings"
)

// SplitTarget は多段分割の設定。分割元ボーンの回転・移動を各軸のボーンに振り分ける
type SplitTarget struct {
	Source string `yaml:"source" json:"source"`
	Rx     string `yaml:"rx" json:"rx"`
	Ry     string `yaml:"ry" json:"ry"`
	Rz     string `yaml:"rz" json:"rz"`
	Mx     string `yaml:"mx" json:"mx"`
	My     string `yaml:"my" json:"my"`
	Mz     string `yaml:"mz" json:"mz"`
}

// RotationNames は X,Y,Z 回転の分割先
func (t *SplitTarget) RotationNames() [3]string {
	return [3]string{t.Rx, t.Ry, t.Rz}
}

// PositionNames は X,Y,Z 移動の分割先
func (t *SplitTarget) PositionNames() [3]string {
	return [3]string{t.Mx, t.My, t.Mz}
}

// TargetNames は空でない分割先ボーン名
func (t *SplitTarget) TargetNames() []string {
	return nonEmptyNames(t.Rx, t.Ry, t.Rz, t.Mx, t.My, t.Mz)
}

// JoinTarget は多段統合の設定。各軸のボーンの回転・移動を統合先ボーンにまとめる
type JoinTarget struct {
	Dest string `yaml:"dest" json:"dest"`
	Rx   string `yaml:"rx" json:"rx"`
	Ry   string `yaml:"ry" json:"ry"`
	Rz   string `yaml:"rz" json:"rz"`
	Mx   string `yaml:"mx" json:"mx"`
	My   string `yaml:"my" json:"my"`
	Mz   string `yaml:"mz" json:"mz"`
}

func (t *JoinTarget) RotationNames() [3]string {
	return [3]string{t.Rx, t.Ry, t.Rz}
}

func (t *JoinTarget) PositionNames() [3]string {
	return [3]string{t.Mx, t.My, t.Mz}
}

// SourceNames は空でない統合元ボーン名(重複なし)
func (t *JoinTarget) SourceNames() []string {
	return nonEmptyNames(t.Rx, t.Ry, t.Rz, t.Mx, t.My, t.Mz)
}

func nonEmptyNames(names ...string) []string {
	result := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		duplicated := false
		for _, r := range result {
			if r == name {
				duplicated = true
				break
			}
		}
		if !duplicated {
			result = append(result, name)
		}
	}
	return result
}

// CompareOp はモーフ条件の比較方法
type CompareOp string

const (
	COMPARE_GREATER       CompareOp = ">"
	COMPARE_GREATER_EQUAL CompareOp = ">="
	COMPARE_EQUAL         CompareOp = "=="
	COMPARE_LESS_EQUAL    CompareOp = "<="
	COMPARE_LESS          CompareOp = "<"
)

// 画面表示用の名称
var compareOpLabels = map[CompareOp]string{
	COMPARE_GREATER:       "より大きい(＞)",
	COMPARE_GREATER_EQUAL: "以上(≧)",
	COMPARE_EQUAL:         "等しい(＝)",
	COMPARE_LESS_EQUAL:    "以下(≦)",
	COMPARE_LESS:          "より小さい(＜)",
}

func (op CompareOp) Label() string {
	return compareOpLabels[op]
}

// ParseCompareOp は記号または表示名から比較方法を返す
func ParseCompareOp(s string) (CompareOp, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case ">", "＞", "gt":
		return COMPARE_GREATER, true
	case ">=", "≧", "ge":
		return COMPARE_GREATER_EQUAL, true
	case "=", "==", "＝", "eq":
		return COMPARE_EQUAL, true
	case "<=", "≦", "le":
		return COMPARE_LESS_EQUAL, true
	case "<", "＜", "lt":
		return COMPARE_LESS, true
	}
	for op, label := range compareOpLabels {
		if s == label {
			return op, true
		}
	}
	return "", false
}

// MorphCondition はモーフ条件調整の設定。値が条件を満たすキーの値を Ratio 倍する
type MorphCondition struct {
	MorphName string    `yaml:"morph" json:"morph"`
	Op        CompareOp `yaml:"op" json:"op"`
	Value     float64   `yaml:"value" json:"value"`
	Ratio     float64   `yaml:"ratio" json:"ratio"`
}

// StanceLock は接地位置を固定する区間
type StanceLock struct {
	Start      int    `yaml:"start" json:"start"`
	End        int    `yaml:"end" json:"end"`
	GroundBone string `yaml:"ground_bone" json:"ground_bone"` // 接地するボーン(かかと/つま先等)
}

func (s *StanceLock) Contains(frame int) bool {
	return s.Start <= frame && frame <= s.End
}

// GroundMode は足IK変換時の接地補正の方法
type GroundMode string

const (
	GROUND_NONE        GroundMode = "none"
	GROUND_GLOBAL_MIN  GroundMode = "global_min"
	GROUND_MEDIAN      GroundMode = "median"
	GROUND_STANCE_LOCK GroundMode = "stance_lock"
)

func ParseGroundMode(s string) (GroundMode, bool) {
	switch GroundMode(s) {
	case GROUND_NONE, GROUND_GLOBAL_MIN, GROUND_MEDIAN, GROUND_STANCE_LOCK:
		return GroundMode(s), true
	case "":
		return GROUND_NONE, true
	}
	return GROUND_NONE, false
}

// SmoothMode はスムージング時の焼き込み方法
type SmoothMode string

const (
	SMOOTH_CURVE  SmoothMode = "curve"
	SMOOTH_LINEAR SmoothMode = "linear"
)

func ParseSmoothMode(s string) (SmoothMode, bool) {
	switch SmoothMode(s) {
	case SMOOTH_CURVE, "":
		return SMOOTH_CURVE, true
	case SMOOTH_LINEAR:
		return SMOOTH_LINEAR, true
	}
	return SMOOTH_CURVE, false
}
