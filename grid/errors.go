package grid

import "errors"

var (
	// ErrInvalidBounds 网格边界非法：lower <= 0 或 lower >= upper。启动期致命。
	ErrInvalidBounds = errors.New("invalid grid bounds")

	// ErrInsufficientCapital 资金不足以支撑最小两档网格。可恢复，下一周期重试。
	ErrInsufficientCapital = errors.New("insufficient capital for minimum grid")
)
