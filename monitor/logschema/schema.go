package logschema

import (
	"fmt"
	"sort"
	"strings"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
// 结构化日志是网格历史的唯一持久记录，字段缺了事后就拼不回来。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	"plan_cycle": {
		Event:    "plan_cycle",
		Required: []string{"capital", "levels", "mid", "placed", "cancelled"},
	},
	"compound": {
		Event:    "compound",
		Required: []string{"capital", "baseline", "profit"},
	},
	"flip": {
		Event:    "flip",
		Required: []string{"side", "price", "size"},
	},
	"side_dropped": {
		Event:    "side_dropped",
		Required: []string{"side", "size", "min"},
	},
	"fill_dropped": {
		Event:    "fill_dropped",
		Required: []string{"queueSize"},
	},
	"cycle_error": {
		Event:    "cycle_error",
		Required: []string{"error"},
	},
	"ws_disconnect": {
		Event:    "ws_disconnect",
		Required: []string{"error"},
	},
}

// Known 返回所有事件名，便于外部生成文档。
func Known() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate 检查日志字段是否包含 schema 中要求的 key。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ","))
	}
	return nil
}
