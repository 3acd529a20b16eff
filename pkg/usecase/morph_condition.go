package usecase

import (
	"context"
	"fmt"

	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/miu200521358/motion_supporter/pkg/domain/vmd"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
	"github.com/pkg/errors"
	"gopkg.in/Knetic/govaluate.v3"
)

// MorphConditionUsecase は条件を満たすモーフキーの値を倍率で調整する
type MorphConditionUsecase struct{}

func NewMorphConditionUsecase() *MorphConditionUsecase {
	return &MorphConditionUsecase{}
}

// 等価判定は浮動小数の誤差を許容する
var conditionFunctions = map[string]govaluate.ExpressionFunction{
	"isclose": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, errors.Errorf("isclose: args %d", len(args))
		}
		a, ok1 := args[0].(float64)
		b, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return nil, errors.Errorf("isclose: %v, %v", args[0], args[1])
		}
		return mmath.IsClose(a, b, 1e-5, 1e-8), nil
	},
}

// newConditionExpression は value と threshold を比較する式
func newConditionExpression(op domain.CompareOp) (*govaluate.EvaluableExpression, error) {
	switch op {
	case domain.COMPARE_EQUAL:
		return govaluate.NewEvaluableExpressionWithFunctions("isclose(value, threshold)", conditionFunctions)
	case domain.COMPARE_GREATER, domain.COMPARE_GREATER_EQUAL, domain.COMPARE_LESS_EQUAL, domain.COMPARE_LESS:
		return govaluate.NewEvaluableExpression(fmt.Sprintf("value %s threshold", op))
	}
	return nil, errors.Errorf("unknown compare op: %s", op)
}

func (u *MorphConditionUsecase) Exec(
	ctx context.Context, options *domain.MorphConditionOptions,
) (*vmd.VmdMotion, error) {
	motion, err := options.Motion.Copy()
	if err != nil {
		return nil, err
	}

	// 同じモーフの条件は1タスクで設定順に適用する
	morphNames := make([]string, 0)
	conditions := make(map[string][]*domain.MorphCondition)
	for _, c := range options.Conditions {
		if motion.MorphFrames.Get(c.MorphName).Len() == 0 {
			mlog.W("%s", mi18n.T("モーフキーなし", map[string]interface{}{"MorphName": c.MorphName}))
			continue
		}
		if _, ok := conditions[c.MorphName]; !ok {
			morphNames = append(morphNames, c.MorphName)
		}
		conditions[c.MorphName] = append(conditions[c.MorphName], c)
	}

	tasks := make([]miter.Task, 0, len(morphNames))
	for _, morphName := range morphNames {
		morphName := morphName
		tasks = append(tasks, func(ctx context.Context) error {
			defer options.FilledMonitor().Increment()
			return u.adjust(ctx, motion.MorphFrames.Get(morphName), conditions[morphName])
		})
	}

	options.FilledMonitor().AddTotal(len(tasks))
	if err := miter.RunTasks(ctx, workerCount(options), tasks); err != nil {
		return nil, err
	}

	return motion, nil
}

func (u *MorphConditionUsecase) adjust(
	ctx context.Context, mnf *vmd.MorphNameFrames, conditions []*domain.MorphCondition,
) error {
	for _, c := range conditions {
		if err := miter.CheckTerminate(ctx); err != nil {
			return err
		}

		expression, err := newConditionExpression(c.Op)
		if err != nil {
			return err
		}

		count := 0
		for _, index := range mnf.IndexList() {
			mf := mnf.Get(index)
			matched, err := expression.Evaluate(map[string]interface{}{"value": mf.Ratio, "threshold": c.Value})
			if err != nil {
				return errors.Wrapf(err, "morph condition %s", c.MorphName)
			}
			if isMatched, ok := matched.(bool); ok && isMatched {
				mf.Ratio *= c.Ratio
				mnf.Insert(mf)
				count++
			}
		}

		mlog.I("%s", mi18n.T("モーフ条件調整", map[string]interface{}{
			"MorphName": c.MorphName, "Condition": c.Op.Label(), "Value": c.Value,
			"Ratio": c.Ratio, "Count": count}))
	}
	return nil
}
