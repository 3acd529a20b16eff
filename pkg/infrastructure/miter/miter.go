package miter

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/miu200521358/motion_supporter/pkg/config/merr"
	"golang.org/x/sync/errgroup"
)

var (
	lightLimit = 32
	heavyLimit = 5
)

// SetWorkerLimits は並列数の上限を設定する
func SetWorkerLimits(light, heavy int) {
	if light > 0 {
		lightLimit = light
	}
	if heavy > 0 {
		heavyLimit = heavy
	}
}

// MaxWorkers は並列数。保存優先の場合は1
func MaxWorkers(heavy, execSaving bool) int {
	if execSaving {
		return 1
	}
	if heavy {
		return min(heavyLimit, runtime.NumCPU()+4)
	}
	return min(lightLimit, runtime.NumCPU()+4)
}

// CheckTerminate は中断要求があれば TerminateError を返す
func CheckTerminate(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return merr.NewTerminateError("manual terminate")
	default:
		return nil
	}
}

// Task は並列に実行する処理単位
type Task func(ctx context.Context) error

// RunTasks は最大 workers 並列で tasks を実行する。
// 失敗したタスクがあれば以降のタスクは開始せず、実行中のタスクは最後まで実行して最初のエラーを返す
func RunTasks(ctx context.Context, workers int, tasks []Task) error {
	var g errgroup.Group
	g.SetLimit(max(1, workers))

	var failed atomic.Bool
	for _, task := range tasks {
		task := task
		if failed.Load() {
			break
		}
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			if err := CheckTerminate(ctx); err != nil {
				failed.Store(true)
				return err
			}
			if err := task(ctx); err != nil {
				failed.Store(true)
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// GetBlockSize は全件数をCPU数で分割したブロックサイズとブロック数
func GetBlockSize(totalTaskCount int) (blockSize, blockCount int) {
	if totalTaskCount <= 0 {
		return 1, 0
	}
	numCPU := runtime.NumCPU()
	blockSize = max(1, (totalTaskCount+numCPU-1)/numCPU)
	blockCount = (totalTaskCount + blockSize - 1) / blockSize
	return blockSize, blockCount
}

// IterParallelByList は allData を blockSize ごとに並列処理する。
// logBlockSize 件処理するごとに logFunc を呼ぶ
func IterParallelByList[T any](
	allData []T, blockSize, logBlockSize int,
	processFunc func(index int, data T) error, logFunc func(iterIndex, allCount int),
) error {
	if len(allData) == 0 {
		return nil
	}
	blockSize = max(1, blockSize)

	var processedCount atomic.Int64
	var logMutex sync.Mutex
	process := func(index int, data T) error {
		if err := processFunc(index, data); err != nil {
			return err
		}
		count := int(processedCount.Add(1))
		if logFunc != nil && logBlockSize > 0 && count%logBlockSize == 0 {
			logMutex.Lock()
			logFunc(count, len(allData))
			logMutex.Unlock()
		}
		return nil
	}

	if blockSize >= len(allData) {
		for i, data := range allData {
			if err := process(i, data); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	var failed atomic.Bool

	for start := 0; start < len(allData); start += blockSize {
		start := start
		end := min(start+blockSize, len(allData))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if failed.Load() {
					return nil
				}
				if err := process(i, allData[i]); err != nil {
					failed.Store(true)
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
