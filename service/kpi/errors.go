package kpi

import "errors"

// 业务错误，控制器层据此映射HTTP状态码
var (
	ErrKPINotFound           = errors.New("KPI不存在或已停用")
	ErrSystemKPIReadOnly     = errors.New("系统指标不可修改")
	ErrNotOwner              = errors.New("只能操作自己创建的指标")
	ErrDashboardKPINotFound  = errors.New("看板指标不存在")
	ErrDuplicateDashboardKPI = errors.New("该指标已在看板上")
	ErrSuggestionNotFound    = errors.New("指标推荐不存在")
	ErrInvalidAction         = errors.New("无效的推荐动作")
	ErrValidation            = errors.New("缺少必填字段")
)
