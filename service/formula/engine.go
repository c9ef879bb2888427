/*
 * @module service/formula/engine
 * @description 自定义指标公式求值器：在yaegi解释器中对聚合量表达式求值
 * @architecture 工具层 - 沙箱解释执行
 * @documentReference dev_docs/requirements.md
 * @stateFlow 注入聚合量变量 -> 解释执行表达式 -> 数值化结果
 * @rules 公式只能引用聚合环境中的命名变量与math包；每次求值使用全新解释器实例
 * @dependencies github.com/traefik/yaegi/interp, github.com/traefik/yaegi/stdlib, github.com/spf13/cast
 * @refs service/calculation/calculator.go
 */

package formula

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Engine 公式求值引擎
type Engine struct{}

// NewEngine 创建公式求值引擎
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate 在聚合量环境下对表达式求值
// 例: formula = "total_revenue / total_clicks", env = {"total_revenue": 1200, "total_clicks": 80}
func (e *Engine) Evaluate(formula string, env map[string]float64) (float64, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return 0, fmt.Errorf("公式为空")
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return 0, fmt.Errorf("解释器初始化失败: %w", err)
	}
	if _, err := i.Eval(`import "math"`); err != nil {
		return 0, fmt.Errorf("解释器初始化失败: %w", err)
	}

	// 按名稳定注入聚合量变量
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !identPattern.MatchString(name) {
			return 0, fmt.Errorf("非法变量名: %s", name)
		}
		if _, err := i.Eval(fmt.Sprintf("var %s float64 = %g", name, env[name])); err != nil {
			return 0, fmt.Errorf("变量注入失败 %s: %w", name, err)
		}
	}

	value, err := i.Eval(formula)
	if err != nil {
		return 0, fmt.Errorf("公式求值失败: %w", err)
	}

	result, err := cast.ToFloat64E(value.Interface())
	if err != nil {
		return 0, fmt.Errorf("公式结果不是数值: %w", err)
	}
	return result, nil
}
