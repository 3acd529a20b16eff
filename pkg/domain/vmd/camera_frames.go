package vmd

import (
	"slices"

	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
)

// CameraFrame はカメラのキーフレーム。本ツールでは加工せずそのまま引き継ぐ
type CameraFrame struct {
	index            int
	Distance         float64
	Position         *mmath.MVec3
	Rotation         *mmath.MVec3 // ラジアン
	Curves           []byte       // 24byte
	ViewOfAngle      int
	IsPerspectiveOff bool
}

func NewCameraFrame(index int) *CameraFrame {
	return &CameraFrame{
		index:    index,
		Position: mmath.NewMVec3(),
		Rotation: mmath.NewMVec3(),
		Curves:   make([]byte, 24),
	}
}

func (cf *CameraFrame) Index() int {
	return cf.index
}

func (cf *CameraFrame) Copy() *CameraFrame {
	curves := make([]byte, len(cf.Curves))
	copy(curves, cf.Curves)
	return &CameraFrame{
		index:            cf.index,
		Distance:         cf.Distance,
		Position:         cf.Position.Copy(),
		Rotation:         cf.Rotation.Copy(),
		Curves:           curves,
		ViewOfAngle:      cf.ViewOfAngle,
		IsPerspectiveOff: cf.IsPerspectiveOff,
	}
}

type LightFrame struct {
	index    int
	Color    *mmath.MVec3
	Position *mmath.MVec3
}

func NewLightFrame(index int) *LightFrame {
	return &LightFrame{index: index, Color: mmath.NewMVec3(), Position: mmath.NewMVec3()}
}

func (lf *LightFrame) Index() int {
	return lf.index
}

func (lf *LightFrame) Copy() *LightFrame {
	return &LightFrame{index: lf.index, Color: lf.Color.Copy(), Position: lf.Position.Copy()}
}

type ShadowFrame struct {
	index    int
	Mode     byte
	Distance float64
}

func NewShadowFrame(index int) *ShadowFrame {
	return &ShadowFrame{index: index}
}

func (sf *ShadowFrame) Index() int {
	return sf.index
}

func (sf *ShadowFrame) Copy() *ShadowFrame {
	return &ShadowFrame{index: sf.index, Mode: sf.Mode, Distance: sf.Distance}
}

// IkEnabledFrame は表示・IKキーの中の1IK分のON/OFF
type IkEnabledFrame struct {
	BoneName string
	Enabled  bool
}

func NewIkEnableFrame(boneName string, enabled bool) *IkEnabledFrame {
	return &IkEnabledFrame{BoneName: boneName, Enabled: enabled}
}

// IkFrame は表示・IKのキーフレーム
type IkFrame struct {
	index   int
	Visible bool
	IkList  []*IkEnabledFrame
}

func NewIkFrame(index int) *IkFrame {
	return &IkFrame{index: index, Visible: true, IkList: make([]*IkEnabledFrame, 0)}
}

func (kf *IkFrame) Index() int {
	return kf.index
}

func (kf *IkFrame) Copy() *IkFrame {
	copied := NewIkFrame(kf.index)
	copied.Visible = kf.Visible
	for _, ik := range kf.IkList {
		copied.IkList = append(copied.IkList, NewIkEnableFrame(ik.BoneName, ik.Enabled))
	}
	return copied
}

type indexedFrame interface {
	Index() int
}

// Frames はカメラ等、加工しないキーフレームの一覧(フレーム番号順)
type Frames[T indexedFrame] struct {
	values []T
}

func NewFrames[T indexedFrame]() *Frames[T] {
	return &Frames[T]{values: make([]T, 0)}
}

// Append はフレーム番号順を保って追加する
func (fs *Frames[T]) Append(frame T) {
	pos, _ := slices.BinarySearchFunc(fs.values, frame.Index(), func(v T, index int) int {
		return v.Index() - index
	})
	// 同一フレームは後ろに追加する
	for pos < len(fs.values) && fs.values[pos].Index() == frame.Index() {
		pos++
	}
	fs.values = slices.Insert(fs.values, pos, frame)
}

func (fs *Frames[T]) Values() []T {
	return fs.values
}

func (fs *Frames[T]) Len() int {
	return len(fs.values)
}

func (fs *Frames[T]) MaxFrame() int {
	if len(fs.values) == 0 {
		return 0
	}
	return fs.values[len(fs.values)-1].Index()
}

// Copy は各フレームを copyFunc で複製した一覧
func (fs *Frames[T]) Copy(copyFunc func(T) T) *Frames[T] {
	copied := NewFrames[T]()
	for _, v := range fs.values {
		copied.values = append(copied.values, copyFunc(v))
	}
	return copied
}

type CameraFrames = Frames[*CameraFrame]
type LightFrames = Frames[*LightFrame]
type ShadowFrames = Frames[*ShadowFrame]
type IkFrames = Frames[*IkFrame]
