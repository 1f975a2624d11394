// types/types.go
package types

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// 任务（唯一实体）
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// 变更操作
type ChangeOp string

const (
	OpSet    ChangeOp = "set"
	OpRemove ChangeOp = "remove"
)

// 跨上下文变更信号
type Change struct {
	Origin string    `json:"origin"`
	Key    string    `json:"key"`
	Op     ChangeOp  `json:"op"`
	At     time.Time `json:"at"`
}

// 序列化任务列表
func EncodeTasks(tasks []Task) (string, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TrimText 去除首尾空白，U+FEFF 也视为空白
func TrimText(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// 反序列化任务列表；值必须是JSON数组。
// 无法解析、null、缺少ID或文本为空的元素被跳过，skipped 为跳过的数量。
func DecodeTasks(raw string) (tasks []Task, skipped int, err error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, 0, err
	}

	tasks = make([]Task, 0, len(items))
	for _, item := range items {
		var t Task
		if err := json.Unmarshal(item, &t); err != nil || t.ID == "" || TrimText(t.Text) == "" {
			skipped++ // 跳过无效数据
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, skipped, nil
}

// 序列化变更信号
func (c Change) Serialize() ([]byte, error) {
	return json.Marshal(c)
}

// 反序列化变更信号
func DeserializeChange(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, err
	}
	return c, nil
}
