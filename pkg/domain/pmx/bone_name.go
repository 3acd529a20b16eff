package pmx

// 処理用に追加するボーンの接頭辞
const MLIB_PREFIX string = "[mlib]"

type BoneDirection string

const (
	BONE_DIRECTION_TRUNK BoneDirection = ""
	BONE_DIRECTION_LEFT  BoneDirection = "左"
	BONE_DIRECTION_RIGHT BoneDirection = "右"
)

func (d BoneDirection) String() string {
	return string(d)
}

// Sign は右を-1、左を1とした符号
func (d BoneDirection) Sign() float64 {
	if d == BONE_DIRECTION_RIGHT {
		return -1
	}
	return 1
}

var BONE_DIRECTIONS = []BoneDirection{BONE_DIRECTION_RIGHT, BONE_DIRECTION_LEFT}

// StandardBoneName は準標準ボーン名。方向付きのものは {d} に方向が入る
type StandardBoneName string

const (
	ROOT          StandardBoneName = "全ての親"
	CENTER        StandardBoneName = "センター"
	CENTER_PARENT StandardBoneName = "センター親"
	GROOVE        StandardBoneName = "グルーブ"
	WAIST         StandardBoneName = "腰"
	LOWER         StandardBoneName = "下半身"
	UPPER         StandardBoneName = "上半身"
	UPPER2        StandardBoneName = "上半身2"
	NECK          StandardBoneName = "首"
	HEAD          StandardBoneName = "頭"
	SHOULDER      StandardBoneName = "{d}肩"
	ARM           StandardBoneName = "{d}腕"
	ARM_TWIST     StandardBoneName = "{d}腕捩"
	ELBOW         StandardBoneName = "{d}ひじ"
	WRIST_TWIST   StandardBoneName = "{d}手捩"
	WRIST         StandardBoneName = "{d}手首"
	WRIST_TAIL    StandardBoneName = "{d}手首先"
	ARM_IK        StandardBoneName = "{d}腕ＩＫ"
	ARM_IK_HALF   StandardBoneName = "{d}腕IK"
	LEG           StandardBoneName = "{d}足"
	KNEE          StandardBoneName = "{d}ひざ"
	ANKLE         StandardBoneName = "{d}足首"
	TOE           StandardBoneName = "{d}つま先"
	HEEL          StandardBoneName = "{d}かかと"
	LEG_IK_PARENT StandardBoneName = "{d}足IK親"
	LEG_IK        StandardBoneName = "{d}足ＩＫ"
	TOE_IK        StandardBoneName = "{d}つま先ＩＫ"
	FINGER        StandardBoneName = "指"
)

func (s StandardBoneName) String() string {
	return string(s)
}

func (s StandardBoneName) StringFromDirection(direction BoneDirection) string {
	return replaceDirection(string(s), direction)
}

func (s StandardBoneName) Right() string {
	return s.StringFromDirection(BONE_DIRECTION_RIGHT)
}

func (s StandardBoneName) Left() string {
	return s.StringFromDirection(BONE_DIRECTION_LEFT)
}

func replaceDirection(name string, direction BoneDirection) string {
	result := make([]rune, 0, len(name))
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i] == '{' && runes[i+1] == 'd' && runes[i+2] == '}' {
			result = append(result, []rune(direction.String())...)
			i += 2
			continue
		}
		result = append(result, runes[i])
	}
	return string(result)
}

// ArmIkBoneNames は腕IKとして扱うボーン名(全角/半角)
func ArmIkBoneNames() []string {
	names := make([]string, 0, 4)
	for _, direction := range BONE_DIRECTIONS {
		names = append(names, ARM_IK.StringFromDirection(direction), ARM_IK_HALF.StringFromDirection(direction))
	}
	return names
}

// DirectionFromName は名前の先頭から方向を判定する
func DirectionFromName(name string) BoneDirection {
	runes := []rune(name)
	if len(runes) == 0 {
		return BONE_DIRECTION_TRUNK
	}
	switch string(runes[0]) {
	case BONE_DIRECTION_RIGHT.String():
		return BONE_DIRECTION_RIGHT
	case BONE_DIRECTION_LEFT.String():
		return BONE_DIRECTION_LEFT
	}
	return BONE_DIRECTION_TRUNK
}
