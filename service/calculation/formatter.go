/*
 * @module service/calculation/formatter
 * @description 指标数值格式化，按format_type输出本地化展示字符串
 * @architecture 纯函数工具层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 无状态
 * @rules 前后缀在本地化核心串外原样拼接；货币与数字按en-US千分位分组
 * @dependencies golang.org/x/text/message, golang.org/x/text/number
 * @refs service/calculation/calculator.go
 */

package calculation

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatValue 将数值格式化为展示字符串
// format_type: currency, percentage, ratio, duration, number(默认)
func FormatValue(value float64, formatType string, decimals int, prefix, suffix string) string {
	var formatted string

	switch formatType {
	case "currency":
		formatted = "$" + printer.Sprintf("%v",
			number.Decimal(value, number.MinFractionDigits(decimals), number.MaxFractionDigits(decimals)))
	case "percentage":
		formatted = fmt.Sprintf("%.*f%%", decimals, value)
	case "ratio":
		formatted = fmt.Sprintf("%.*fx", decimals, value)
	case "duration":
		// 时长单位由上下文决定，不内嵌
		formatted = fmt.Sprintf("%.*f", decimals, value)
	default:
		formatted = printer.Sprintf("%v",
			number.Decimal(value, number.MinFractionDigits(decimals), number.MaxFractionDigits(decimals)))
	}

	return prefix + formatted + suffix
}

// Grouped 按en-US千分位输出，最多保留3位小数
func Grouped(value float64) string {
	return printer.Sprintf("%v", number.Decimal(value, number.MaxFractionDigits(3)))
}
