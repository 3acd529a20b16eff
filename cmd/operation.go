package main

import (
	"time"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/mfile"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/repository"
	"github.com/miu200521358/motion_supporter/pkg/usecase"
	"github.com/spf13/pflag"
)

// cliOptions はコマンドラインの指定値
type cliOptions struct {
	operation  string
	configPath string
	motionPath string
	modelPath  string
	outputPath string

	workers           int
	execSaving        bool
	removeUnnecessary bool

	// 全ての親
	centerRotation bool

	// 足IK
	groundMode        string
	stanceLockPath    string
	ankleHorizontal   bool
	jitterLock        bool
	legErrorTolerance float64

	// 多段分割・統合
	targetsPath string

	// ゆらぎ
	noiseSize   int
	copyCount   int
	fingerNoise bool
	motivation  bool
	seed        uint64

	// モーフ条件
	conditionsPath string

	// スムージング
	boneNames  []string
	loopCount  int
	smoothMode string
}

// newFlagSet は処理の指定とアプリ設定の上書きを受け付けるフラグ。
// アプリ設定のフラグ名は設定ファイルのキーと同じ
func newFlagSet(opts *cliOptions) *pflag.FlagSet {
	flags := pflag.NewFlagSet("motion_supporter", pflag.ContinueOnError)
	flags.SortFlags = false

	flags.StringVar(&opts.operation, "op", "", "operation name")
	flags.StringVar(&opts.configPath, "config", "", "config file (yaml/json)")
	flags.StringVarP(&opts.motionPath, "motion", "m", "", "input vmd")
	flags.StringVarP(&opts.modelPath, "model", "p", "", "input pmx")
	flags.StringVarP(&opts.outputPath, "output", "o", "", "output path (default: <motion>_<suffix>_<timestamp>)")

	flags.IntVar(&opts.workers, "workers", 0, "max parallel tasks (0: auto)")
	flags.BoolVar(&opts.execSaving, "exec-saving", false, "run tasks one by one")
	flags.BoolVar(&opts.removeUnnecessary, "remove-unnecessary", false, "remove redundant keys")

	flags.BoolVar(&opts.centerRotation, "center-rotation", false, "[parent] move center rotation to upper/lower body")

	flags.StringVar(&opts.groundMode, "ground", string(domain.GROUND_NONE), "[leg_fk2ik] none|global_min|median|stance_lock")
	flags.StringVar(&opts.stanceLockPath, "stance-locks", "", "[leg_fk2ik] stance lock file (yaml/csv)")
	flags.BoolVar(&opts.ankleHorizontal, "ankle-horizontal", false, "[leg_fk2ik] level unrotated ankles")
	flags.BoolVar(&opts.jitterLock, "jitter-lock", false, "[leg_fk2ik] lock leg IK jitter on the ground")
	flags.Float64Var(&opts.legErrorTolerance, "leg-error-tolerance", 0, "[leg_fk2ik] jitter lock tolerance")

	flags.StringVar(&opts.targetsPath, "targets", "", "[multi_split/multi_join] target file (yaml/csv)")

	flags.IntVar(&opts.noiseSize, "noise-size", 5, "[noise] noise size")
	flags.IntVar(&opts.copyCount, "copy-count", 1, "[noise] number of copies")
	flags.BoolVar(&opts.fingerNoise, "finger-noise", false, "[noise] add noise to fingers")
	flags.BoolVar(&opts.motivation, "motivation", false, "[noise] scale each copy")
	flags.Uint64Var(&opts.seed, "seed", 0, "[noise] random seed (default: current time)")

	flags.StringVar(&opts.conditionsPath, "conditions", "", "[morph_condition] condition file (yaml/csv)")

	flags.StringSliceVar(&opts.boneNames, "bones", nil, "[smooth] bone names (default: all keyed bones)")
	flags.IntVar(&opts.loopCount, "loop-count", 1, "[smooth] smoothing passes")
	flags.StringVar(&opts.smoothMode, "smooth-mode", string(domain.SMOOTH_CURVE), "[smooth] curve|linear")

	// アプリ設定(viper のキー名)
	flags.String("lang", "", "message language (ja|en)")
	flags.String("log_level", "", "verbose|debug|info|warn|error")
	flags.String("log_dir", "", "diagnostic log directory")
	flags.Int("ik_max_count", 0, "IK iterations per frame")
	flags.Float64("reduce_degree", 0, "key reduction angle tolerance (degrees)")
	flags.Float64("reduce_length", 0, "key reduction length tolerance")

	return flags
}

// parseKind は --op か最初の引数から処理の種類を決める
func parseKind(opts *cliOptions, args []string) (domain.OperationKind, bool) {
	name := opts.operation
	if name == "" && len(args) > 0 {
		name = args[0]
	}
	return domain.ParseOperationKind(name)
}

// buildOperation は指定値から処理の入力を組み立てる。ルールファイルはここで読む
func buildOperation(
	kind domain.OperationKind, opts *cliOptions, flags *pflag.FlagSet, motionSet *usecase.MotionSet,
) (domain.Operation, error) {
	common := domain.CommonOptions{
		Motion:            motionSet.Motion,
		Model:             motionSet.Model,
		OutputPath:        opts.outputPath,
		MaxWorkers:        opts.workers,
		ExecSaving:        opts.execSaving,
		RemoveUnnecessary: opts.removeUnnecessary,
	}
	if common.OutputPath == "" {
		common.OutputPath = defaultOutputPath(kind, opts)
	}

	rules := repository.NewRuleRepository()

	switch kind {
	case domain.OPERATION_PARENT:
		return &domain.ParentOptions{CommonOptions: common, CenterRotation: opts.centerRotation}, nil
	case domain.OPERATION_LEG_FK_TO_IK:
		groundMode, ok := domain.ParseGroundMode(opts.groundMode)
		if !ok {
			return nil, merr.NewConfigError("", "ground: "+opts.groundMode)
		}
		options := &domain.LegFkToIkOptions{
			CommonOptions:     common,
			GroundMode:        groundMode,
			AnkleHorizontal:   opts.ankleHorizontal,
			JitterLock:        opts.jitterLock,
			LegErrorTolerance: opts.legErrorTolerance,
		}
		if groundMode == domain.GROUND_STANCE_LOCK {
			locks, err := rules.LoadStanceLocks(opts.stanceLockPath)
			if err != nil {
				return nil, err
			}
			options.StanceLocks = locks
		}
		return options, nil
	case domain.OPERATION_ARM_IK_TO_FK:
		return &domain.ArmIkToFkOptions{CommonOptions: common}, nil
	case domain.OPERATION_ARM_TWIST_OFF:
		return &domain.ArmTwistOffOptions{CommonOptions: common}, nil
	case domain.OPERATION_MULTI_SPLIT:
		targets, err := rules.LoadSplitTargets(opts.targetsPath)
		if err != nil {
			return nil, err
		}
		return &domain.MultiSplitOptions{CommonOptions: common, Targets: targets}, nil
	case domain.OPERATION_MULTI_JOIN:
		targets, err := rules.LoadJoinTargets(opts.targetsPath)
		if err != nil {
			return nil, err
		}
		return &domain.MultiJoinOptions{CommonOptions: common, Targets: targets}, nil
	case domain.OPERATION_NOISE:
		seed := opts.seed
		if !flags.Changed("seed") {
			seed = uint64(time.Now().UnixNano())
		}
		mlog.I("seed: %d", seed)
		return &domain.NoiseOptions{
			CommonOptions: common,
			NoiseSize:     opts.noiseSize,
			CopyCount:     opts.copyCount,
			FingerNoise:   opts.fingerNoise,
			Motivation:    opts.motivation,
			Seed:          seed,
		}, nil
	case domain.OPERATION_MORPH_CONDITION:
		conditions, err := rules.LoadMorphConditions(opts.conditionsPath)
		if err != nil {
			return nil, err
		}
		return &domain.MorphConditionOptions{CommonOptions: common, Conditions: conditions}, nil
	case domain.OPERATION_SMOOTH:
		mode, ok := domain.ParseSmoothMode(opts.smoothMode)
		if !ok {
			return nil, merr.NewConfigError("", "smooth-mode: "+opts.smoothMode)
		}
		return &domain.SmoothOptions{
			CommonOptions: common,
			BoneNames:     opts.boneNames,
			LoopCount:     opts.loopCount,
			Mode:          mode,
		}, nil
	case domain.OPERATION_TRAJECTORY:
		return &domain.TrajectoryOptions{CommonOptions: common}, nil
	}

	return nil, merr.NewConfigError("", "operation: "+kind.String())
}

// defaultOutputPath は入力モーションと同じ場所のタイムスタンプ付きパス
func defaultOutputPath(kind domain.OperationKind, opts *cliOptions) string {
	switch kind {
	case domain.OPERATION_NOISE:
		return mfile.CreateNoiseOutputPath(opts.motionPath, opts.noiseSize, opts.motivation)
	case domain.OPERATION_TRAJECTORY:
		return mfile.CreateOutputPathWithExt(opts.motionPath, kind.Suffix(), ".pmx")
	}
	return mfile.CreateOutputPath(opts.motionPath, kind.Suffix())
}
