/*
 * @module service/formula/engine_test
 * @description 公式求值引擎单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造聚合量环境 -> 求值 -> 断言结果或错误
 * @rules 覆盖四则运算、math包、变量注入、错误分支
 * @dependencies testing, stretchr/testify
 */

package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateBasicArithmetic(t *testing.T) {
	engine := NewEngine()

	env := map[string]float64{
		"total_revenue": 1200,
		"total_clicks":  80,
	}

	result, err := engine.Evaluate("total_revenue / total_clicks", env)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, result, 0.0001)

	result, err = engine.Evaluate("(total_revenue - 200) * 2", env)
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, result, 0.0001)
}

func TestEvaluateMathPackage(t *testing.T) {
	engine := NewEngine()

	result, err := engine.Evaluate("math.Sqrt(total_spend)", map[string]float64{"total_spend": 144})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, result, 0.0001)
}

func TestEvaluateIntegerLiteralResult(t *testing.T) {
	engine := NewEngine()

	// 纯字面量表达式也要能数值化
	result, err := engine.Evaluate("3 + 4", nil)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, result, 0.0001)
}

func TestEvaluateEmptyFormula(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Evaluate("   ", map[string]float64{"total_revenue": 1})
	assert.Error(t, err)
}

func TestEvaluateInvalidVariableName(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Evaluate("x", map[string]float64{"total-revenue": 1})
	assert.Error(t, err)
}

func TestEvaluateUnknownIdentifier(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Evaluate("missing_metric * 2", map[string]float64{"total_revenue": 1})
	assert.Error(t, err)
}

func TestEvaluateNonNumericResult(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Evaluate(`"not a number"`, nil)
	assert.Error(t, err)
}
