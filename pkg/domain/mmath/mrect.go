package mmath

// MRect は矩形を表す。
type MRect struct {
	Min *MVec2
	Max *MVec2
}

func NewMRect(min, max *MVec2) *MRect {
	return &MRect{Min: min, Max: max}
}

func (r *MRect) Width() float64 {
	return r.Max.X - r.Min.X
}

func (r *MRect) Height() float64 {
	return r.Max.Y - r.Min.Y
}

func (r *MRect) Contains(p *MVec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Normalize は矩形内の点を 0..1 の座標に変換する。幅または高さが0の軸は0
func (r *MRect) Normalize(p *MVec2) *MVec2 {
	n := &MVec2{}
	if r.Width() != 0 {
		n.X = (p.X - r.Min.X) / r.Width()
	}
	if r.Height() != 0 {
		n.Y = (p.Y - r.Min.Y) / r.Height()
	}
	return n
}
