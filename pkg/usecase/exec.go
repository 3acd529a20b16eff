package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/miu200521358/motion_supporter/pkg/config/mconfig"
	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
	"github.com/miu200521358/motion_supporter/pkg/usecase/deform"
	"github.com/pkg/errors"
)

// Executor は処理を実行して結果を保存する
type Executor struct {
	config *mconfig.AppConfig
}

func NewExecutor(config *mconfig.AppConfig) *Executor {
	if config == nil {
		config = mconfig.DefaultAppConfig()
	}
	return &Executor{config: config}
}

// Execute は既定の設定で op を実行する
func Execute(ctx context.Context, op domain.Operation) *domain.Result {
	return NewExecutor(nil).Execute(ctx, op)
}

// Execute は op を実行し、出力先があれば保存する。
// 中断は Killed、それ以外のエラーは Failed としてスタックトレースをログディレクトリに残す
func (e *Executor) Execute(ctx context.Context, op domain.Operation) *domain.Result {
	start := time.Now()
	result := &domain.Result{Kind: op.Kind(), Outcome: domain.OUTCOME_SUCCEEDED}

	e.fillCommon(op.Common())
	startLog(op)

	outputs, err := e.run(ctx, op)
	if err == nil {
		err = e.save(outputs)
	}
	result.Outputs = outputs
	result.Elapsed = time.Since(start)

	switch {
	case err == nil:
		mlog.ILT(mi18n.T("処理終了"), "%s", mi18n.T("処理終了メッセージ", map[string]interface{}{
			"Process": mi18n.T(op.Kind().String()), "ProcessTime": formatDuration(result.Elapsed)}))
	case merr.IsTerminateError(err):
		result.Outcome = domain.OUTCOME_KILLED
		result.Err = err
		mlog.WT(mi18n.T("処理中断"), "%s", mi18n.T("処理中断メッセージ", map[string]interface{}{
			"Process": mi18n.T(op.Kind().String())}))
	default:
		result.Outcome = domain.OUTCOME_FAILED
		result.Err = err
		if path, saveErr := mlog.SaveDiagnostic(e.config.LogDir, op.Kind().String(), err); saveErr == nil {
			result.DiagnosticPath = path
		} else {
			mlog.E("diagnostic: %v", saveErr)
		}
		if merr.IsConfigError(err) {
			mlog.ET(mi18n.T("処理失敗"), "%s", mi18n.T("設定エラーメッセージ", map[string]interface{}{
				"Process": mi18n.T(op.Kind().String()), "Error": err.Error()}))
		} else {
			mlog.ET(mi18n.T("処理失敗"), "%s", mi18n.T("処理失敗メッセージ", map[string]interface{}{
				"Process": mi18n.T(op.Kind().String()), "Error": err.Error(), "Path": result.DiagnosticPath}))
		}
	}

	return result
}

// fillCommon は未指定の共通設定をアプリ設定で埋める
func (e *Executor) fillCommon(common *domain.CommonOptions) {
	if common.DegreeTolerance <= 0 {
		common.DegreeTolerance = e.config.ReduceDegree
	}
	if common.LengthTolerance <= 0 {
		common.LengthTolerance = e.config.ReduceLength
	}
	if common.IkMaxCount <= 0 {
		common.IkMaxCount = e.config.IkMaxCount
	}
}

func (e *Executor) run(ctx context.Context, op domain.Operation) ([]*domain.Output, error) {
	if err := miter.CheckTerminate(ctx); err != nil {
		return nil, err
	}

	common := op.Common()
	if common.Motion == nil {
		return nil, merr.NewConfigError("", mi18n.T("モーション未指定"))
	}
	if requiresModel(op.Kind()) && common.Model == nil {
		return nil, merr.NewConfigError("", mi18n.T("モデル未指定"))
	}

	var motion *vmd.VmdMotion
	var err error

	switch options := op.(type) {
	case *domain.ParentOptions:
		motion, err = NewParentUsecase().Exec(ctx, options)
	case *domain.LegFkToIkOptions:
		motion, err = NewLegFkToIkUsecase().Exec(ctx, options)
	case *domain.ArmIkToFkOptions:
		armUsecase := NewArmIkToFkUsecase()
		armUsecase.Policy = deform.NewIkPolicy(e.config)
		motion, err = armUsecase.Exec(ctx, options)
	case *domain.ArmTwistOffOptions:
		motion, err = NewArmTwistOffUsecase().Exec(ctx, options)
	case *domain.MultiSplitOptions:
		motion, err = NewMultiSplitUsecase().Exec(ctx, options)
	case *domain.MultiJoinOptions:
		motion, err = NewMultiJoinUsecase().Exec(ctx, options)
	case *domain.MorphConditionOptions:
		motion, err = NewMorphConditionUsecase().Exec(ctx, options)
	case *domain.SmoothOptions:
		motion, err = NewSmoothUsecase().Exec(ctx, options)
	case *domain.NoiseOptions:
		return NewNoiseUsecase().Exec(ctx, options)
	case *domain.TrajectoryOptions:
		model, err := NewTrajectoryUsecase().Exec(ctx, options)
		if err != nil {
			return nil, err
		}
		model.SetPath(options.OutputPath)
		return []*domain.Output{{Path: options.OutputPath, Model: model}}, nil
	default:
		return nil, errors.Errorf("unknown operation: %T", op)
	}

	if err != nil {
		return nil, err
	}
	return []*domain.Output{{Path: common.OutputPath, Motion: motion}}, nil
}

// save は出力を順番に保存する。パスが空の出力は保存しない
func (e *Executor) save(outputs []*domain.Output) error {
	for _, output := range outputs {
		if output == nil || output.Path == "" {
			continue
		}

		var err error
		if output.Model != nil {
			err = SaveModel(output.Path, output.Model)
		} else {
			err = SaveMotion(output.Path, output.Motion)
		}
		if err != nil {
			return err
		}
		mlog.I("%s", mi18n.T("出力完了", map[string]interface{}{"Path": output.Path}))
	}
	return nil
}

// requiresModel はモデルのボーン構造が必要な処理か
func requiresModel(kind domain.OperationKind) bool {
	switch kind {
	case domain.OPERATION_PARENT, domain.OPERATION_LEG_FK_TO_IK, domain.OPERATION_ARM_IK_TO_FK,
		domain.OPERATION_ARM_TWIST_OFF:
		return true
	}
	return false
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	minutes := int(d / time.Minute)
	seconds := (d % time.Minute).Seconds()
	if minutes > 0 {
		return fmt.Sprintf("%d:%06.3f", minutes, seconds)
	}
	return fmt.Sprintf("%.3fs", seconds)
}
