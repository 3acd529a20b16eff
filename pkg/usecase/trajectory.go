package usecase

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
	"github.com/miu200521358/motion_supporter/pkg/usecase/deform"
	"gonum.org/v1/gonum/floats"
)

const (
	trajectory_width          = 0.1
	trajectory_material_range = 100
)

// 軌跡の色。前から順にグラデーションさせる
var trajectoryColors = [][3]float64{
	{0.894, 0.102, 0.110},
	{0.216, 0.494, 0.722},
	{0.302, 0.686, 0.290},
	{0.596, 0.306, 0.639},
	{1.0, 0.498, 0.0},
	{1.0, 1.0, 0.2},
	{0.651, 0.337, 0.157},
	{0.969, 0.506, 0.749},
	{0.6, 0.6, 0.6},
}

// TrajectoryUsecase はグルーブの軌跡を帯状のメッシュにしたモデルを作る
type TrajectoryUsecase struct{}

func NewTrajectoryUsecase() *TrajectoryUsecase {
	return &TrajectoryUsecase{}
}

func (u *TrajectoryUsecase) Exec(ctx context.Context, options *domain.TrajectoryOptions) (*pmx.PmxModel, error) {
	motion := options.Motion
	centerName := pmx.CENTER.String()
	grooveName := pmx.GROOVE.String()

	if !hasKeys(motion, centerName) {
		return nil, merr.NewConfigError(centerName, mi18n.T("軌跡キーなし"))
	}

	rig := newTrajectoryRig()
	links, err := rig.Bones.CreateLinkToRoot(grooveName)
	if err != nil {
		return nil, err
	}

	lastFrame := motion.BoneFrames.Get(centerName).MaxFrame()
	frames := mmath.IntRanges(lastFrame)
	if len(frames) < 2 {
		return nil, merr.NewConfigError(centerName, mi18n.T("軌跡キーなし"))
	}

	positions := make([]*mmath.MVec3, len(frames))
	blockSize, _ := miter.GetBlockSize(len(frames))
	if err := miter.IterParallelByList(frames, blockSize, log_block_size,
		func(index, frame int) error {
			if err := miter.CheckTerminate(ctx); err != nil {
				return err
			}
			positions[index] = deform.CalcGlobalPose(rig, links, motion, frame, nil).
				Bones.GetByName(grooveName).FilledGlobalPosition()
			return nil
		},
		func(iterIndex, allCount int) {
			processLog("軌跡モデル生成", iterIndex, allCount)
		}); err != nil {
		return nil, err
	}

	model := newTrajectoryModel(filepath.Base(motion.Path()))
	colors := trajectoryGradient(lastFrame)

	for i := 1; i < len(positions); i++ {
		materialIndex := i / trajectory_material_range
		if materialIndex >= len(model.Materials) {
			color := colors[min(materialIndex, len(colors)-1)]
			material := pmx.NewMaterial(fmt.Sprintf("軌跡%06d", materialIndex))
			material.EnglishName = material.Name
			material.Diffuse = [4]float64{color[0], color[1], color[2], 1}
			material.Ambient = [3]float64{color[0] / 2, color[1] / 2, color[2] / 2}
			material.DrawFlag = 0x01 | 0x02 | 0x10
			model.Materials = append(model.Materials, material)
		}

		appendTrajectoryPrism(model, positions[i-1], positions[i])
		model.Materials[materialIndex].VerticesCount += 3 * 8
	}

	mlog.I("%s", mi18n.T("軌跡モデル生成完了", map[string]interface{}{
		"Frames": len(frames), "Vertices": len(model.Vertices), "Materials": len(model.Materials)}))

	return model, nil
}

// newTrajectoryRig は全ての親・センター・グルーブだけの計算用モデル
func newTrajectoryRig() *pmx.PmxModel {
	rig := pmx.NewPmxModel("")
	for i, def := range []struct {
		name     string
		position *mmath.MVec3
	}{
		{pmx.ROOT.String(), mmath.NewMVec3()},
		{pmx.CENTER.String(), &mmath.MVec3{Y: 8}},
		{pmx.GROOVE.String(), &mmath.MVec3{Y: 8.2}},
	} {
		bone := pmx.NewBoneByName(def.name)
		bone.Position = def.position
		bone.ParentIndex = i - 1
		bone.BoneFlag |= pmx.BONE_FLAG_CAN_TRANSLATE
		rig.Bones.Append(bone)
	}
	rig.Setup()
	return rig
}

func newTrajectoryModel(motionName string) *pmx.PmxModel {
	model := pmx.NewPmxModel("")
	model.Name = fmt.Sprintf("軌跡モデル - %s", motionName)
	model.EnglishName = model.Name
	model.Comment = fmt.Sprintf("元モーション: %s", motionName)

	root := pmx.NewBoneByName(pmx.ROOT.String())
	root.EnglishName = "Root"
	root.BoneFlag |= pmx.BONE_FLAG_CAN_TRANSLATE
	root.TailPosition = &mmath.MVec3{Y: 1}
	model.Bones.Append(root)
	model.Setup()

	model.DisplaySlots = append(model.DisplaySlots,
		&pmx.DisplaySlot{Name: "Root", EnglishName: "Root", Special: true,
			References: []pmx.DisplayReference{{Index: root.Index()}}},
		&pmx.DisplaySlot{Name: "表情", EnglishName: "Exp", Special: true},
	)
	return model
}

// trajectoryGradient は材質ごとの色。隣り合う基本色の間を線形に補間する
func trajectoryGradient(lastFrame int) [][3]float64 {
	steps := max(1, int(math.Ceil(float64(lastFrame)/trajectory_material_range/float64(len(trajectoryColors)-1))))

	colors := make([][3]float64, 0, steps*(len(trajectoryColors)-1))
	channel := make([]float64, steps)
	for i := 1; i < len(trajectoryColors); i++ {
		segment := make([][3]float64, steps)
		for c := 0; c < 3; c++ {
			if steps == 1 {
				channel[0] = trajectoryColors[i-1][c]
			} else {
				floats.Span(channel, trajectoryColors[i-1][c], trajectoryColors[i][c])
			}
			for s := 0; s < steps; s++ {
				segment[s][c] = channel[s]
			}
		}
		colors = append(colors, segment...)
	}
	return colors
}

// appendTrajectoryPrism は from から to への細い四角柱(8頂点・8面)を追加する
func appendTrajectoryPrism(model *pmx.PmxModel, from, to *mmath.MVec3) {
	offsets := []*mmath.MVec3{
		mmath.NewMVec3(),
		{X: trajectory_width},
		{X: trajectory_width, Y: trajectory_width},
		{Z: trajectory_width},
	}

	start := len(model.Vertices)
	for _, offset := range offsets {
		for _, pos := range []*mmath.MVec3{from, to} {
			model.Vertices = append(model.Vertices, &pmx.Vertex{
				Position: pos.Added(offset),
				Normal:   mmath.MVec3UnitY.Copy(),
				Uv:       mmath.NewMVec2(),
			})
		}
	}

	// 側面ごとに2枚ずつ。最後の側面は最初の辺に戻る
	for side := 0; side < len(offsets); side++ {
		a, b := start+side*2, start+side*2+1
		c, d := start+(side+1)%len(offsets)*2, start+(side+1)%len(offsets)*2+1
		model.Faces = append(model.Faces,
			&pmx.Face{VertexIndexes: [3]int{a, b, c}},
			&pmx.Face{VertexIndexes: [3]int{c, b, d}},
		)
	}
}
