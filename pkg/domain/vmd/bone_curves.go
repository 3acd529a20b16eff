package vmd

import (
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
)

// BoneCurves はボーンキーフレの補間曲線(回転, 移動X/Y/Z)
type BoneCurves struct {
	TranslateX *mmath.Curve
	TranslateY *mmath.Curve
	TranslateZ *mmath.Curve
	Rotate     *mmath.Curve
	// 読み込んだ元の64byte。曲線を変更していない場合はそのまま書き出す
	Values []byte
}

func NewBoneCurves() *BoneCurves {
	return &BoneCurves{
		TranslateX: mmath.NewCurve(),
		TranslateY: mmath.NewCurve(),
		TranslateZ: mmath.NewCurve(),
		Rotate:     mmath.NewCurve(),
	}
}

// NewBoneCurvesByValues は64byteの補間パラメータから曲線を生成する
func NewBoneCurvesByValues(values []byte) *BoneCurves {
	if len(values) < 16 {
		return NewBoneCurves()
	}

	raw := make([]byte, len(values))
	copy(raw, values)

	// 1行目: X_x1,Y_x1,Z_x1,R_x1, X_y1,Y_y1,Z_y1,R_y1, X_x2,Y_x2,Z_x2,R_x2, X_y2,Y_y2,Z_y2,R_y2
	return &BoneCurves{
		TranslateX: mmath.NewCurveByValues(values[0], values[4], values[8], values[12]),
		TranslateY: mmath.NewCurveByValues(values[1], values[5], values[9], values[13]),
		TranslateZ: mmath.NewCurveByValues(values[2], values[6], values[10], values[14]),
		Rotate:     mmath.NewCurveByValues(values[3], values[7], values[11], values[15]),
		Values:     raw,
	}
}

func (bc *BoneCurves) params() [16]byte {
	x := bc.TranslateX.Values()
	y := bc.TranslateY.Values()
	z := bc.TranslateZ.Values()
	r := bc.Rotate.Values()

	var p [16]byte
	for i := 0; i < 4; i++ {
		p[i*4+0] = x[i]
		p[i*4+1] = y[i]
		p[i*4+2] = z[i]
		p[i*4+3] = r[i]
	}
	return p
}

// Merge は64byteの補間パラメータを返す。曲線が読み込み時のままなら元の値を返す
func (bc *BoneCurves) Merge() []byte {
	if len(bc.Values) == 64 && bc.isUnchanged() {
		return bc.Values
	}

	p := bc.params()
	values := make([]byte, 0, 64)
	filler := []byte{1, 0, 0}
	for row := 0; row < 4; row++ {
		values = append(values, p[row:]...)
		values = append(values, filler[:row]...)
	}
	return values
}

func (bc *BoneCurves) isUnchanged() bool {
	p := bc.params()
	for i := 0; i < 16; i++ {
		if p[i] != bc.Values[i] {
			return false
		}
	}
	return true
}

// Translate は軸番号(0:X,1:Y,2:Z)の移動曲線
func (bc *BoneCurves) Translate(axis int) *mmath.Curve {
	switch axis {
	case 0:
		return bc.TranslateX
	case 1:
		return bc.TranslateY
	default:
		return bc.TranslateZ
	}
}

func (bc *BoneCurves) SetTranslate(axis int, curve *mmath.Curve) {
	switch axis {
	case 0:
		bc.TranslateX = curve
	case 1:
		bc.TranslateY = curve
	default:
		bc.TranslateZ = curve
	}
}

func (bc *BoneCurves) Copy() *BoneCurves {
	copied := &BoneCurves{
		TranslateX: bc.TranslateX.Copy(),
		TranslateY: bc.TranslateY.Copy(),
		TranslateZ: bc.TranslateZ.Copy(),
		Rotate:     bc.Rotate.Copy(),
	}
	if bc.Values != nil {
		copied.Values = make([]byte, len(bc.Values))
		copy(copied.Values, bc.Values)
	}
	return copied
}
