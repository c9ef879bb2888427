/*
 * @module service/calculation/batch
 * @description 批量指标计算：并发展开N个独立计算，容忍单个失败，只返回成功结果
 * @architecture 并发扇出 - all-settled汇合
 * @documentReference dev_docs/requirements.md
 * @stateFlow 扇出goroutine -> 汇合 -> 过滤失败/空结果
 * @rules 失败与未注册的指标从结果中静默缺失，不对外暴露部分失败报告；结果顺序不保证
 * @dependencies sync
 * @refs service/calculation/calculator.go
 */

package calculation

import (
	"context"
	"sync"

	"kpihub-service/service/models"
)

// CalculateBatch 并发计算一组指标，只保留成功结果
func (s *Service) CalculateBatch(ctx context.Context, userID string, kpiNames []string) []*models.CalculatedKPI {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]*models.CalculatedKPI, 0, len(kpiNames))
	)

	for _, name := range kpiNames {
		wg.Add(1)
		go func(kpiName string) {
			defer wg.Done()

			calculated, err := s.Calculate(ctx, kpiName, userID)
			if err != nil || calculated == nil {
				return
			}

			mu.Lock()
			results = append(results, calculated)
			mu.Unlock()
		}(name)
	}

	wg.Wait()
	return results
}
