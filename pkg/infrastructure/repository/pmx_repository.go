package repository

import (
	"io"
	"os"
	"strings"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/pkg/errors"
)

// pmxHeader は PMX のグローバル情報
type pmxHeader struct {
	encoding        byte
	extendedUVCount byte
	vertexIndexSize byte
	textureIndex    byte
	materialIndex   byte
	boneIndexSize   byte
	morphIndexSize  byte
	rigidIndexSize  byte
}

type PmxRepository struct{}

func NewPmxRepository() *PmxRepository {
	return &PmxRepository{}
}

func (rep *PmxRepository) CanLoad(path string) (bool, error) {
	return canLoad(path, ".pmx")
}

// Load は PMX を読み込む。戻り値は *pmx.PmxModel
func (rep *PmxRepository) Load(path string) (any, error) {
	if ok, err := rep.CanLoad(path); !ok {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	model, err := rep.Read(f)
	if err != nil {
		return nil, merr.NewParseError(path, err)
	}
	model.SetPath(path)
	return model, nil
}

// Read は r から PMX を読み込む。剛体・ジョイントは読まない
func (rep *PmxRepository) Read(r io.Reader) (*pmx.PmxModel, error) {
	br := newBaseReader(r)
	model := pmx.NewPmxModel("")

	model.Signature = string(br.readBytes(4))
	if br.err != nil {
		return nil, errors.WithStack(br.err)
	}
	if !strings.HasPrefix(model.Signature, "PMX") {
		return nil, errors.Errorf("unsupported signature: %s", model.Signature)
	}
	model.Version = br.readFloat()

	headerSize := int(br.readUint8())
	globals := br.readBytes(headerSize)
	if br.err != nil || headerSize < 8 {
		return nil, errors.Errorf("invalid header: size=%d err=%v", headerSize, br.err)
	}
	header := &pmxHeader{
		encoding:        globals[0],
		extendedUVCount: globals[1],
		vertexIndexSize: globals[2],
		textureIndex:    globals[3],
		materialIndex:   globals[4],
		boneIndexSize:   globals[5],
		morphIndexSize:  globals[6],
		rigidIndexSize:  globals[7],
	}

	model.Name = br.readText(header.encoding)
	model.EnglishName = br.readText(header.encoding)
	model.Comment = br.readText(header.encoding)
	model.EnglishComment = br.readText(header.encoding)

	readers := []func(*baseReader, *pmxHeader, *pmx.PmxModel){
		readVertices, readFaces, readTextures, readMaterials, readBones, readMorphs, readDisplaySlots,
	}
	for _, read := range readers {
		read(br, header, model)
		if br.err != nil {
			br.unexpectedEOF()
			return nil, errors.WithStack(br.err)
		}
	}

	model.Setup()
	return model, nil
}

func readVertices(br *baseReader, header *pmxHeader, model *pmx.PmxModel) {
	count := br.readInt32()
	model.Vertices = make([]*pmx.Vertex, 0, max(0, count))
	for i := 0; i < count && br.err == nil; i++ {
		vertex := &pmx.Vertex{
			Position: br.readVec3(),
			Normal:   br.readVec3(),
			Uv:       br.readVec2(),
		}
		br.skip(int(header.extendedUVCount) * 16)

		switch br.readUint8() {
		case 0: // BDEF1
			vertex.BoneIndex = br.readIndex(header.boneIndexSize)
		case 1: // BDEF2
			vertex.BoneIndex = br.readIndex(header.boneIndexSize)
			br.readIndex(header.boneIndexSize)
			br.skip(4)
		case 2, 4: // BDEF4, QDEF
			vertex.BoneIndex = br.readIndex(header.boneIndexSize)
			for loopIdx := 0; loopIdx < 3; loopIdx++ {
				br.readIndex(header.boneIndexSize)
			}
			br.skip(16)
		case 3: // SDEF
			vertex.BoneIndex = br.readIndex(header.boneIndexSize)
			br.readIndex(header.boneIndexSize)
			br.skip(4 + 12*3)
		default:
			br.err = errors.New("unknown deform type")
			return
		}

		vertex.EdgeScale = br.readFloat()
		model.Vertices = append(model.Vertices, vertex)
	}
}

func readFaces(br *baseReader, header *pmxHeader, model *pmx.PmxModel) {
	count := br.readInt32() / 3
	model.Faces = make([]*pmx.Face, 0, max(0, count))
	for i := 0; i < count && br.err == nil; i++ {
		face := &pmx.Face{}
		for j := 0; j < 3; j++ {
			face.VertexIndexes[j] = br.readVertexIndex(header.vertexIndexSize)
		}
		model.Faces = append(model.Faces, face)
	}
}

func readTextures(br *baseReader, header *pmxHeader, model *pmx.PmxModel) {
	count := br.readInt32()
	for i := 0; i < count && br.err == nil; i++ {
		model.Textures = append(model.Textures, br.readText(header.encoding))
	}
}

func readMaterials(br *baseReader, header *pmxHeader, model *pmx.PmxModel) {
	count := br.readInt32()
	for i := 0; i < count && br.err == nil; i++ {
		material := pmx.NewMaterial(br.readText(header.encoding))
		material.EnglishName = br.readText(header.encoding)
		br.readFloats(material.Diffuse[:])
		br.readFloats(material.Specular[:])
		material.SpecularPower = br.readFloat()
		br.readFloats(material.Ambient[:])
		material.DrawFlag = br.readUint8()
		br.readFloats(material.Edge[:])
		material.EdgeSize = br.readFloat()
		material.TextureIndex = br.readIndex(header.textureIndex)
		br.readIndex(header.textureIndex) // スフィア
		br.readUint8()                    // スフィアモード
		if br.readUint8() == 0 {
			br.readIndex(header.textureIndex)
		} else {
			br.readUint8()
		}
		material.Memo = br.readText(header.encoding)
		material.VerticesCount = br.readInt32()
		model.Materials = append(model.Materials, material)
	}
}

func readBones(br *baseReader, header *pmxHeader, model *pmx.PmxModel) {
	count := br.readInt32()
	model.Bones = pmx.NewBones(max(0, count))
	for i := 0; i < count && br.err == nil; i++ {
		bone := pmx.NewBoneByName(br.readText(header.encoding))
		bone.EnglishName = br.readText(header.encoding)
		bone.Position = br.readVec3()
		bone.ParentIndex = br.readIndex(header.boneIndexSize)
		bone.Layer = br.readInt32()
		bone.BoneFlag = pmx.BoneFlag(br.readUint16())

		if bone.IsTailBone() {
			bone.TailIndex = br.readIndex(header.boneIndexSize)
		} else {
			bone.TailPosition = br.readVec3()
		}
		if bone.IsEffectorRotation() || bone.IsEffectorTranslation() {
			bone.EffectIndex = br.readIndex(header.boneIndexSize)
			bone.EffectFactor = br.readFloat()
		}
		if bone.BoneFlag&pmx.BONE_FLAG_HAS_FIXED_AXIS == pmx.BONE_FLAG_HAS_FIXED_AXIS {
			bone.FixedAxis = br.readVec3()
		}
		if bone.HasLocalAxis() {
			bone.LocalAxisX = br.readVec3()
			bone.LocalAxisZ = br.readVec3()
		}
		if bone.IsExternalParentDeform() {
			bone.EffectorKey = br.readInt32()
		}
		if bone.BoneFlag&pmx.BONE_FLAG_IS_IK == pmx.BONE_FLAG_IS_IK {
			bone.Ik = pmx.NewIk()
			bone.Ik.BoneIndex = br.readIndex(header.boneIndexSize)
			bone.Ik.LoopCount = br.readInt32()
			bone.Ik.UnitRotation = &mmath.MVec3{X: br.readFloat()}
			linkCount := br.readInt32()
			for j := 0; j < linkCount && br.err == nil; j++ {
				link := pmx.NewIkLink()
				link.BoneIndex = br.readIndex(header.boneIndexSize)
				link.AngleLimit = br.readUint8() == 1
				if link.AngleLimit {
					link.MinAngleLimit = br.readVec3()
					link.MaxAngleLimit = br.readVec3()
				}
				bone.Ik.Links = append(bone.Ik.Links, link)
			}
		}

		model.Bones.Append(bone)
	}
}

func readMorphs(br *baseReader, header *pmxHeader, model *pmx.PmxModel) {
	count := br.readInt32()
	model.Morphs = pmx.NewMorphs(max(0, count))
	for i := 0; i < count && br.err == nil; i++ {
		morph := pmx.NewMorph(br.readText(header.encoding))
		morph.EnglishName = br.readText(header.encoding)
		morph.Panel = br.readUint8()
		morph.MorphType = pmx.MorphType(br.readUint8())
		morph.OffsetCount = br.readInt32()

		// オフセットは読み飛ばす
		for j := 0; j < morph.OffsetCount && br.err == nil; j++ {
			switch morph.MorphType {
			case pmx.MORPH_TYPE_GROUP, pmx.MORPH_TYPE_FLIP:
				br.readIndex(header.morphIndexSize)
				br.skip(4)
			case pmx.MORPH_TYPE_VERTEX:
				br.readVertexIndex(header.vertexIndexSize)
				br.skip(12)
			case pmx.MORPH_TYPE_BONE:
				br.readIndex(header.boneIndexSize)
				br.skip(12 + 16)
			case pmx.MORPH_TYPE_UV, pmx.MORPH_TYPE_EXTENDED_UV1, pmx.MORPH_TYPE_EXTENDED_UV2,
				pmx.MORPH_TYPE_EXTENDED_UV3, pmx.MORPH_TYPE_EXTENDED_UV4:
				br.readVertexIndex(header.vertexIndexSize)
				br.skip(16)
			case pmx.MORPH_TYPE_MATERIAL:
				br.readIndex(header.materialIndex)
				br.skip(1 + 28*4)
			case pmx.MORPH_TYPE_IMPULSE:
				br.readIndex(header.rigidIndexSize)
				br.skip(1 + 12 + 12)
			default:
				br.err = errors.Errorf("unknown morph type: %d", morph.MorphType)
				return
			}
		}

		model.Morphs.Append(morph)
	}
}

func readDisplaySlots(br *baseReader, header *pmxHeader, model *pmx.PmxModel) {
	count := br.readInt32()
	model.DisplaySlots = make([]*pmx.DisplaySlot, 0, max(0, count))
	for i := 0; i < count && br.err == nil; i++ {
		slot := &pmx.DisplaySlot{
			Name:        br.readText(header.encoding),
			EnglishName: br.readText(header.encoding),
			Special:     br.readUint8() == 1,
		}
		refCount := br.readInt32()
		for j := 0; j < refCount && br.err == nil; j++ {
			ref := pmx.DisplayReference{IsMorph: br.readUint8() == 1}
			if ref.IsMorph {
				ref.Index = br.readIndex(header.morphIndexSize)
			} else {
				ref.Index = br.readIndex(header.boneIndexSize)
			}
			slot.References = append(slot.References, ref)
		}
		model.DisplaySlots = append(model.DisplaySlots, slot)
	}
}

// Save は PMX 2.0 (UTF-16LE, INDEXは全て4byte) で保存する
func (rep *PmxRepository) Save(path string, data any, includeSystem bool) error {
	model, ok := data.(*pmx.PmxModel)
	if !ok {
		return errors.Errorf("not a model: %T", data)
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := rep.Write(f, model, includeSystem); err != nil {
		return err
	}
	return errors.WithStack(f.Close())
}

// Write は w に PMX を書き出す。モーフのオフセットと剛体・ジョイントは出力しない
func (rep *PmxRepository) Write(w io.Writer, model *pmx.PmxModel, includeSystem bool) error {
	bw := newBaseWriter(w)

	bw.writeBytes([]byte("PMX "))
	bw.writeFloat(2.0)
	bw.writeUint8(8)
	bw.writeBytes([]byte{0, 0, 4, 4, 4, 4, 4, 4})

	bw.writeText(model.Name)
	bw.writeText(model.EnglishName)
	bw.writeText(model.Comment)
	bw.writeText(model.EnglishComment)

	bw.writeInt32(len(model.Vertices))
	for _, vertex := range model.Vertices {
		bw.writeVec3(vertex.Position)
		bw.writeVec3(vertex.Normal)
		bw.writeVec2(vertex.Uv)
		bw.writeUint8(0) // BDEF1
		bw.writeIndex(vertex.BoneIndex)
		bw.writeFloat(vertex.EdgeScale)
	}

	bw.writeInt32(len(model.Faces) * 3)
	for _, face := range model.Faces {
		for _, index := range face.VertexIndexes {
			bw.writeIndex(index)
		}
	}

	bw.writeInt32(len(model.Textures))
	for _, texture := range model.Textures {
		bw.writeText(texture)
	}

	bw.writeInt32(len(model.Materials))
	for _, material := range model.Materials {
		bw.writeText(material.Name)
		bw.writeText(material.EnglishName)
		for _, v := range material.Diffuse {
			bw.writeFloat(v)
		}
		for _, v := range material.Specular {
			bw.writeFloat(v)
		}
		bw.writeFloat(material.SpecularPower)
		for _, v := range material.Ambient {
			bw.writeFloat(v)
		}
		bw.writeUint8(material.DrawFlag)
		for _, v := range material.Edge {
			bw.writeFloat(v)
		}
		bw.writeFloat(material.EdgeSize)
		bw.writeIndex(material.TextureIndex)
		bw.writeIndex(-1) // スフィア
		bw.writeUint8(0)  // スフィアモード
		bw.writeUint8(1)  // 共有Toon
		bw.writeUint8(0)
		bw.writeText(material.Memo)
		bw.writeInt32(material.VerticesCount)
	}

	// 処理用ボーンは末尾に追加されるので、最初の処理用ボーン以降を出力しない
	bones := make([]*pmx.Bone, 0, model.Bones.Len())
	for _, bone := range model.Bones.Values() {
		if !includeSystem && strings.HasPrefix(bone.Name(), pmx.MLIB_PREFIX) {
			break
		}
		bones = append(bones, bone)
	}
	bw.writeInt32(len(bones))
	for _, bone := range bones {
		writeBone(bw, bone)
	}

	bw.writeInt32(model.Morphs.Len())
	for _, morph := range model.Morphs.Values() {
		bw.writeText(morph.Name())
		bw.writeText(morph.EnglishName)
		bw.writeUint8(morph.Panel)
		bw.writeUint8(byte(morph.MorphType))
		bw.writeInt32(0)
	}

	bw.writeInt32(len(model.DisplaySlots))
	for _, slot := range model.DisplaySlots {
		bw.writeText(slot.Name)
		bw.writeText(slot.EnglishName)
		bw.writeUint8(boolByte(slot.Special))
		bw.writeInt32(len(slot.References))
		for _, ref := range slot.References {
			bw.writeUint8(boolByte(ref.IsMorph))
			bw.writeIndex(ref.Index)
		}
	}

	// 剛体・ジョイント
	bw.writeInt32(0)
	bw.writeInt32(0)

	return bw.flush()
}

func writeBone(bw *baseWriter, bone *pmx.Bone) {
	bw.writeText(bone.Name())
	bw.writeText(bone.EnglishName)
	bw.writeVec3(bone.Position)
	bw.writeIndex(bone.ParentIndex)
	bw.writeInt32(bone.Layer)
	bw.writeUint16(uint16(bone.BoneFlag))

	if bone.IsTailBone() {
		bw.writeIndex(bone.TailIndex)
	} else {
		bw.writeVec3(bone.TailPosition)
	}
	if bone.IsEffectorRotation() || bone.IsEffectorTranslation() {
		bw.writeIndex(bone.EffectIndex)
		bw.writeFloat(bone.EffectFactor)
	}
	if bone.BoneFlag&pmx.BONE_FLAG_HAS_FIXED_AXIS == pmx.BONE_FLAG_HAS_FIXED_AXIS {
		bw.writeVec3(bone.FixedAxis)
	}
	if bone.HasLocalAxis() {
		bw.writeVec3(bone.LocalAxisX)
		bw.writeVec3(bone.LocalAxisZ)
	}
	if bone.IsExternalParentDeform() {
		bw.writeInt32(bone.EffectorKey)
	}
	if bone.BoneFlag&pmx.BONE_FLAG_IS_IK == pmx.BONE_FLAG_IS_IK {
		ik := bone.Ik
		if ik == nil {
			ik = pmx.NewIk()
		}
		bw.writeIndex(ik.BoneIndex)
		bw.writeInt32(ik.LoopCount)
		bw.writeFloat(ik.UnitRotation.X)
		bw.writeInt32(len(ik.Links))
		for _, link := range ik.Links {
			bw.writeIndex(link.BoneIndex)
			bw.writeUint8(boolByte(link.AngleLimit))
			if link.AngleLimit {
				bw.writeVec3(link.MinAngleLimit)
				bw.writeVec3(link.MaxAngleLimit)
			}
		}
	}
}
