package utils

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency 默认并发数量
const DefaultConcurrency = 5

// ParallelExecute 并行执行多个操作
//
// 对一组输入并发执行操作函数，限制并发数量；结果顺序与输入一致。
// 任意一项失败即取消其余操作并返回该错误，不返回部分结果。
//
// 示例：
//
//	balances, err := ParallelExecute(ctx, users, func(ctx context.Context, user common.Address) (float64, error) {
//	    return integration.GetBalance(ctx, user, block)
//	}, 5) // 并发5个
func ParallelExecute[T any, R any](
	ctx context.Context,
	items []T,
	executeFn func(ctx context.Context, item T) (R, error),
	concurrency int,
) ([]R, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]R, len(items))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, item := range items {
		i, item := i, item
		group.Go(func() error {
			result, err := executeFn(groupCtx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("parallel execute failed: %w", err)
	}
	return results, nil
}
