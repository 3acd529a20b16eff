package pmx

import (
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
)

// PmxModel はモデルを表す。ボーンは読み込み後に共有され、処理中は参照のみ
type PmxModel struct {
	path           string
	Signature      string
	Version        float64
	Name           string
	EnglishName    string
	Comment        string
	EnglishComment string
	Vertices       []*Vertex
	Faces          []*Face
	Textures       []string
	Materials      []*Material
	Bones          *Bones
	Morphs         *Morphs
	DisplaySlots   []*DisplaySlot
}

func NewPmxModel(path string) *PmxModel {
	return &PmxModel{
		path:         path,
		Signature:    "PMX ",
		Version:      2.0,
		Vertices:     make([]*Vertex, 0),
		Faces:        make([]*Face, 0),
		Textures:     make([]string, 0),
		Materials:    make([]*Material, 0),
		Bones:        NewBones(0),
		Morphs:       NewMorphs(0),
		DisplaySlots: make([]*DisplaySlot, 0),
	}
}

func (m *PmxModel) Path() string {
	return m.path
}

func (m *PmxModel) SetPath(path string) {
	m.path = path
}

// Setup は読み込み後の派生情報を構築する
func (m *PmxModel) Setup() {
	m.Bones.Setup()
}

// Copy は処理用の補助ボーンを追加するためのボーン複製を持つモデルを返す
func (m *PmxModel) Copy() *PmxModel {
	copied := *m
	copied.Bones = m.Bones.Copy()
	copied.Bones.Setup()
	return &copied
}

// Vertex は頂点。BDEF1 のみ書き出しに対応する
type Vertex struct {
	Position  *mmath.MVec3
	Normal    *mmath.MVec3
	Uv        *mmath.MVec2
	BoneIndex int
	EdgeScale float64
}

type Face struct {
	VertexIndexes [3]int
}

// Material は材質。Diffuse は RGBA
type Material struct {
	Name          string
	EnglishName   string
	Diffuse       [4]float64
	Specular      [3]float64
	SpecularPower float64
	Ambient       [3]float64
	DrawFlag      byte
	Edge          [4]float64
	EdgeSize      float64
	TextureIndex  int
	Memo          string
	VerticesCount int
}

func NewMaterial(name string) *Material {
	return &Material{
		Name:         name,
		Diffuse:      [4]float64{1, 1, 1, 1},
		Ambient:      [3]float64{0.5, 0.5, 0.5},
		DrawFlag:     0x01,
		Edge:         [4]float64{0, 0, 0, 1},
		EdgeSize:     1,
		TextureIndex: -1,
	}
}

// DisplaySlot は表示枠。Bone は対象がボーンかモーフか
type DisplaySlot struct {
	Name        string
	EnglishName string
	Special     bool
	References  []DisplayReference
}

type DisplayReference struct {
	IsMorph bool
	Index   int
}
