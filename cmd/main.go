package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/miu200521358/motion_supporter/pkg/config/mconfig"
	"github.com/miu200521358/motion_supporter/pkg/config/mi18n"
	"github.com/miu200521358/motion_supporter/pkg/config/mlog"
	"github.com/miu200521358/motion_supporter/pkg/domain"
	"github.com/miu200521358/motion_supporter/pkg/infrastructure/miter"
	"github.com/miu200521358/motion_supporter/pkg/usecase"
	"github.com/spf13/pflag"
)

var env string

//go:embed app/*
var appFiles embed.FS

//go:embed i18n/*
var appI18nFiles embed.FS

const (
	exitSucceeded = 0
	exitFailed    = 1
	exitUsage     = 2
	exitKilled    = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts := &cliOptions{}
	flags := newFlagSet(opts)
	if err := flags.Parse(args); err != nil {
		printUsage(flags)
		return exitUsage
	}

	kind, ok := parseKind(opts, flags.Args())
	if !ok {
		printUsage(flags)
		return exitUsage
	}

	config, err := mconfig.LoadAppConfig(appFiles, opts.configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %+v\n", err)
		return exitUsage
	}
	config.Env = env

	mlog.SetLevel(mlog.ParseLevel(config.LogLevel))
	if err := mi18n.Initialize(appI18nFiles, config.Lang); err != nil {
		mlog.E("i18n: %v", err)
	}
	miter.SetWorkerLimits(config.MaxWorkersLight, config.MaxWorkersHeavy)
	usecase.SetProgressInterval(config.ProgressInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.motionPath == "" {
		mlog.ET(mi18n.T("処理失敗"), "%s", mi18n.T("モーション未指定"))
		return exitUsage
	}
	modelPath := opts.modelPath
	if kind == domain.OPERATION_TRAJECTORY {
		modelPath = ""
	}
	motionSet, err := usecase.LoadMotionSet(opts.motionPath, modelPath)
	if err != nil {
		return exitFailed
	}

	op, err := buildOperation(kind, opts, flags, motionSet)
	if err != nil {
		mlog.ET(mi18n.T("読み込み失敗"), "%s", err.Error())
		return exitFailed
	}

	monitor := newProgressMonitor(os.Stderr)
	op.Common().Monitor = monitor
	result := usecase.NewExecutor(config).Execute(ctx, op)
	monitor.Finish()

	switch result.Outcome {
	case domain.OUTCOME_SUCCEEDED:
		for _, output := range result.Outputs {
			if output.Path != "" {
				fmt.Println(output.Path)
			}
		}
		return exitSucceeded
	case domain.OUTCOME_KILLED:
		return exitKilled
	default:
		if result.DiagnosticPath != "" {
			fmt.Fprintln(os.Stderr, result.DiagnosticPath)
		}
		return exitFailed
	}
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: motion_supporter <operation> --motion <vmd> [--model <pmx>] [options]")
	fmt.Fprint(os.Stderr, "operations:")
	for _, kind := range domain.OperationKinds() {
		fmt.Fprintf(os.Stderr, " %s", kind)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, flags.FlagUsages())
}
