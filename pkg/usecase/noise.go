package usecase

import (
	"context"
	"math"
	"strings"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/pmx"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/mfile"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
	"golang.org/x/exp/rand"
)

// この角度以上回転するキー間は事前に中間キーを入れる
const noise_split_degrees = 150.0

// NoiseUsecase はモーションにゆらぎを加えた複製を作る
type NoiseUsecase struct{}

func NewNoiseUsecase() *NoiseUsecase {
	return &NoiseUsecase{}
}

func (u *NoiseUsecase) Exec(ctx context.Context, options *domain.NoiseOptions) ([]*domain.Output, error) {
	copyCount := options.FilledCopyCount()
	outputs := make([]*domain.Output, copyCount)

	tasks := make([]miter.Task, 0, copyCount)
	for copyNo := 0; copyNo < copyCount; copyNo++ {
		copyNo := copyNo
		tasks = append(tasks, func(ctx context.Context) error {
			defer options.FilledMonitor().Increment()

			motion, scale, err := u.noise(ctx, options, copyNo)
			if err != nil {
				return err
			}

			output := &domain.Output{Motion: motion}
			if options.OutputPath != "" {
				output.Path = mfile.ReplaceNoisePlaceholders(options.OutputPath, copyNo+1, scale)
			}
			outputs[copyNo] = output
			return nil
		})
	}

	options.FilledMonitor().AddTotal(len(tasks))
	if err := miter.RunTasks(ctx, workerCount(options), tasks); err != nil {
		return nil, err
	}

	return outputs, nil
}

// noise は copyNo 番目の複製を作る。乱数は Seed + copyNo で初期化する
func (u *NoiseUsecase) noise(
	ctx context.Context, options *domain.NoiseOptions, copyNo int,
) (*vmd.VmdMotion, float64, error) {
	r := rand.New(rand.NewSource(options.Seed + uint64(copyNo)))

	scale := 1.0
	if options.Motivation {
		scale = motivationScale(r)
	}

	mlog.I("%s", mi18n.T("ゆらぎ複製開始", map[string]interface{}{"No": copyNo + 1, "Scale": scale}))

	original := options.Motion
	motion, err := original.Copy()
	if err != nil {
		return nil, 0, err
	}

	noiseSize := float64(options.NoiseSize)
	noisy := noiseSize != 0 || scale != 1

	for _, boneName := range original.BoneFrames.Names() {
		if err := miter.CheckTerminate(ctx); err != nil {
			return nil, 0, err
		}

		if !options.FingerNoise && strings.Contains(boneName, pmx.FINGER.String()) {
			mlog.D("ゆらぎ複製 指スキップ No.%d %s", copyNo+1, boneName)
			continue
		}

		bnf := motion.BoneFrames.Get(boneName)
		if noiseSize != 0 {
			splitLargeRotation(bnf)
		}

		if !noisy {
			continue
		}

		isLegIk := strings.Contains(boneName, "足ＩＫ")
		isLeg := strings.Contains(boneName, "足") || strings.Contains(boneName, "ひざ")

		prevFrame := 0
		for i, frame := range bnf.IndexList() {
			bf := bnf.Get(frame)
			bf.Curves = bf.FilledCurves()
			originalBf := original.BoneFrames.Get(boneName).Get(frame)

			if !bf.FilledPosition().IsZero() {
				prevOriginalBf := original.BoneFrames.Get(boneName).Get(prevFrame)
				if i > 0 && originalBf.FilledPosition().NearEquals(prevOriginalBf.FilledPosition(), 1e-8) {
					// 元が止まっている間はゆらがせない
					bf.Position = bnf.Get(prevFrame).FilledPosition().Copy()
				} else {
					bf.Position = noisePosition(r, bf.FilledPosition(), originalBf.FilledPosition(),
						noiseSize, scale, options.Motivation, isLegIk)
					for axis := 0; axis < 3; axis++ {
						noiseCurve(r, bf.Curves.Translate(axis), noiseSize)
					}
				}
			}

			if !isLeg {
				euler := bf.FilledRotation().ToEulerAnglesDegrees()
				for axis := 0; axis < 3; axis++ {
					v := euler.Get(axis)
					if options.Motivation {
						v *= scale
					}
					euler.Set(axis, v+(0.5-r.Float64())*noiseSize)
				}
				bf.Rotation = mmath.NewMQuaternionFromDegrees(euler.X, euler.Y, euler.Z)
			}
			noiseCurve(r, bf.Curves.Rotate, noiseSize)

			bnf.Append(bf)
			prevFrame = frame
		}
	}

	return motion, scale, nil
}

// motivationScale は複製全体の拡大率。0.85 から 1.15 まで 0.01 刻み
func motivationScale(r *rand.Rand) float64 {
	return float64(r.Intn(31)+85) / 100
}

// noisePosition は値が 0 でない軸だけゆらがせる。足IKのYは動かさない
func noisePosition(
	r *rand.Rand, pos, originalPos *mmath.MVec3, noiseSize, scale float64, motivation, isLegIk bool,
) *mmath.MVec3 {
	noised := pos.Copy()
	for axis := 0; axis < 3; axis++ {
		original := originalPos.Get(axis)
		if mmath.Round(original, 1) == 0 {
			continue
		}
		if axis == 1 && isLegIk {
			continue
		}

		v := noised.Get(axis)
		jitter := (0.5 - r.Float64()) * (noiseSize / 10)
		if motivation {
			v *= scale
			if axis == 1 && original < 0 {
				// 元がマイナスのYはマイナス方向にだけ動かす
				jitter = (0 - r.Float64()) * (noiseSize / 10)
			}
		}
		noised.Set(axis, v+jitter)
	}
	return noised
}

// noiseCurve は補間曲線の制御点を 0..127 の範囲でずらす
func noiseCurve(r *rand.Rand, curve *mmath.Curve, noiseSize float64) {
	for _, p := range []*float64{&curve.Start.X, &curve.Start.Y, &curve.End.X, &curve.End.Y} {
		delta := math.Ceil((0.5 - r.Float64()) * noiseSize)
		*p = mmath.Clamped(*p+delta, 0, mmath.CURVE_MAX)
	}
}

// splitLargeRotation は大きく回転するキー間に中間キーを入れる
func splitLargeRotation(bnf *vmd.BoneNameFrames) {
	frames := bnf.IndexList()
	for i := 1; i < len(frames); i++ {
		prev := bnf.Get(frames[i-1])
		next := bnf.Get(frames[i])
		if math.Abs(prev.FilledRotation().ToDegree()-next.FilledRotation().ToDegree()) < noise_split_degrees {
			continue
		}
		half := frames[i-1] + int(math.Round(float64(frames[i]-frames[i-1])/2))
		if half == frames[i-1] || half == frames[i] || bnf.Contains(half) {
			continue
		}
		bnf.Insert(bnf.Get(half))
	}
}
