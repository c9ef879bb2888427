/*
 * @module service/calculation/formatter_test
 * @description 数值格式化单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 输入数值 -> 格式化 -> 断言展示字符串
 * @rules 覆盖全部format_type与前后缀拼接
 * @dependencies testing, stretchr/testify
 */

package calculation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueCurrency(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatValue(1234.5, "currency", 2, "", ""))
	assert.Equal(t, "$0.00", FormatValue(0, "currency", 2, "", ""))
	assert.Equal(t, "$1,000,000.00", FormatValue(1000000, "currency", 2, "", ""))
}

func TestFormatValuePercentage(t *testing.T) {
	assert.Equal(t, "50.0%", FormatValue(50, "percentage", 1, "", ""))
	assert.Equal(t, "3.25%", FormatValue(3.25, "percentage", 2, "", ""))
}

func TestFormatValueRatio(t *testing.T) {
	assert.Equal(t, "4.2x", FormatValue(4.2, "ratio", 1, "", ""))
	assert.Equal(t, "0.0x", FormatValue(0, "ratio", 1, "", ""))
}

func TestFormatValueDuration(t *testing.T) {
	// 时长不内嵌单位，由后缀补充
	assert.Equal(t, "12.5 min", FormatValue(12.5, "duration", 1, "", " min"))
}

func TestFormatValueNumber(t *testing.T) {
	assert.Equal(t, "1,234.57", FormatValue(1234.567, "number", 2, "", ""))
	assert.Equal(t, "12,345", FormatValue(12345, "number", 0, "", ""))
}

func TestFormatValuePrefixSuffix(t *testing.T) {
	assert.Equal(t, "~50.0%+", FormatValue(50, "percentage", 1, "~", "+"))
}

func TestGrouped(t *testing.T) {
	assert.Equal(t, "1,234,567", Grouped(1234567))
	assert.Equal(t, "1,234.5", Grouped(1234.5))
	assert.Equal(t, "0", Grouped(0))
}
