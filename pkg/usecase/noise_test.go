package usecase

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/mfile"
	"golang.org/x/exp/rand"
)

func newNoiseMotion() *vmd.VmdMotion {
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.CENTER.String(), 0, mmath.NewMQuaternion(), &mmath.MVec3{X: 1, Y: 2})
	insertBone(motion, pmx.CENTER.String(), 10, mmath.NewMQuaternion(), &mmath.MVec3{X: 3, Y: 1})
	insertBone(motion, pmx.UPPER.String(), 0, mmath.NewMQuaternionFromDegrees(10, 20, 0), nil)
	insertBone(motion, pmx.UPPER.String(), 10, mmath.NewMQuaternionFromDegrees(-5, 30, 10), nil)
	insertBone(motion, "左人差指１", 0, mmath.NewMQuaternionFromDegrees(0, 0, 30), nil)
	return motion
}

func TestNoiseUsecase_ZeroNoise(t *testing.T) {
	motion := newNoiseMotion()

	outputs, err := NewNoiseUsecase().Exec(context.Background(), &domain.NoiseOptions{
		CommonOptions: domain.CommonOptions{Motion: motion},
		CopyCount:     2,
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("outputs = %d", len(outputs))
	}

	for _, output := range outputs {
		for _, name := range motion.BoneFrames.Names() {
			for _, frame := range motion.BoneFrames.Get(name).IndexList() {
				expected := motion.BoneFrames.Get(name).Get(frame)
				actual := output.Motion.BoneFrames.Get(name).Get(frame)
				if !actual.FilledPosition().NearEquals(expected.FilledPosition(), 1e-8) ||
					actual.FilledRotation().AngleDegrees(expected.FilledRotation()) > 1e-4 {
					t.Errorf("%s frame %d changed", name, frame)
				}
			}
		}
	}
}

func TestNoiseUsecase_Reproducible(t *testing.T) {
	options := func() *domain.NoiseOptions {
		return &domain.NoiseOptions{
			CommonOptions: domain.CommonOptions{Motion: newNoiseMotion(), MaxWorkers: 2},
			NoiseSize:     5,
			CopyCount:     2,
			Seed:          42,
		}
	}

	first, err := NewNoiseUsecase().Exec(context.Background(), options())
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	second, err := NewNoiseUsecase().Exec(context.Background(), options())
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	upperName := pmx.UPPER.String()
	for i := range first {
		a := first[i].Motion.BoneFrames.Get(upperName).Get(10)
		b := second[i].Motion.BoneFrames.Get(upperName).Get(10)
		if !a.FilledRotation().NearEquals(b.FilledRotation(), 1e-9) || !a.FilledPosition().NearEquals(b.FilledPosition(), 1e-9) {
			t.Errorf("copy %d is not reproducible", i)
		}
	}

	a := first[0].Motion.BoneFrames.Get(upperName).Get(10)
	b := first[1].Motion.BoneFrames.Get(upperName).Get(10)
	if a.FilledRotation().NearEquals(b.FilledRotation(), 1e-9) {
		t.Errorf("copies have the same noise")
	}

	// 指は動かさない
	finger := first[0].Motion.BoneFrames.Get("左人差指１").Get(0)
	if angle := finger.FilledRotation().AngleDegrees(mmath.NewMQuaternionFromDegrees(0, 0, 30)); angle > 1e-4 {
		t.Errorf("finger rotation changed by %v degrees", angle)
	}
}

func TestNoiseUsecase_OutputPath(t *testing.T) {
	dir := t.TempDir()
	outputs, err := NewNoiseUsecase().Exec(context.Background(), &domain.NoiseOptions{
		CommonOptions: domain.CommonOptions{
			Motion:     newNoiseMotion(),
			OutputPath: filepath.Join(dir, "dance_"+mfile.NOISE_COPY_PLACEHOLDER+".vmd"),
		},
		CopyCount: 2,
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	for i, expected := range []string{"dance_n001.vmd", "dance_n002.vmd"} {
		if outputs[i].Path != filepath.Join(dir, expected) {
			t.Errorf("output path = %s, expected %s", outputs[i].Path, expected)
		}
	}
}

func TestNoisePosition_LegIkY(t *testing.T) {
	pos := &mmath.MVec3{X: 1, Y: 2, Z: 0}
	noised := noisePosition(rand.New(rand.NewSource(1)), pos, pos, 0, 1, false, true)
	if noised.Y != 2 || noised.Z != 0 {
		t.Errorf("noisePosition() = %v", noised)
	}
}

func TestNoiseUsecase_LargeRotationKeys(t *testing.T) {
	motion := vmd.NewVmdMotion("")
	insertBone(motion, pmx.UPPER.String(), 0, mmath.NewMQuaternion(), nil)
	insertBone(motion, pmx.UPPER.String(), 10, mmath.NewMQuaternionFromDegrees(0, 170, 0), nil)

	tests := []struct {
		name      string
		noiseSize int
		expected  []int
	}{
		{name: "ゆらぎなし", noiseSize: 0, expected: []int{0, 10}},
		{name: "ゆらぎあり", noiseSize: 5, expected: []int{0, 5, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputs, err := NewNoiseUsecase().Exec(context.Background(), &domain.NoiseOptions{
				CommonOptions: domain.CommonOptions{Motion: motion},
				NoiseSize:     tt.noiseSize,
				Seed:          3,
			})
			if err != nil {
				t.Fatalf("Exec() error = %v", err)
			}

			actual := outputs[0].Motion.BoneFrames.Get(pmx.UPPER.String()).IndexList()
			if !slices.Equal(actual, tt.expected) {
				t.Errorf("frames = %v, expected %v", actual, tt.expected)
			}
		})
	}
}

func TestMotivationScale(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	minScale, maxScale := 2.0, 0.0
	for loopIdx := 0; loopIdx < 2000; loopIdx++ {
		scale := motivationScale(r)
		minScale = min(minScale, scale)
		maxScale = max(maxScale, scale)
	}

	if !mmath.NearEquals(minScale, 0.85, 1e-9) || !mmath.NearEquals(maxScale, 1.15, 1e-9) {
		t.Errorf("scale range = [%v, %v], expected [0.85, 1.15]", minScale, maxScale)
	}
}
