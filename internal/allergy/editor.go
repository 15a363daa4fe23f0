// Package allergy 实现アレルギー的标签输入：去重的标签列表、输入缓冲区、
// 键盘快捷键以及候选列表。
package allergy

import (
	"strings"
)

// 触发标签操作的按键
const (
	KeyEnter     = "Enter"
	KeyComma     = ","
	KeyBackspace = "Backspace"
)

// Editor 一位出席者的标签编辑状态
type Editor struct {
	Tags   []string
	Buffer string
}

// NewEditor 拷贝传入的标签，编辑不会影响调用方的切片
func NewEditor(tags []string, buffer string) *Editor {
	return &Editor{
		Tags:   append([]string{}, tags...),
		Buffer: buffer,
	}
}

// AddTag 修剪后为空或已存在（区分大小写）时不做任何事，否则追加并清空缓冲区
func (e *Editor) AddTag(raw string) bool {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return false
	}
	for _, t := range e.Tags {
		if t == tag {
			return false
		}
	}

	e.Tags = append(e.Tags, tag)
	e.Buffer = ""
	return true
}

// RemoveTag 删除第一个完全匹配的标签
func (e *Editor) RemoveTag(tag string) bool {
	for i, t := range e.Tags {
		if t == tag {
			e.Tags = append(e.Tags[:i:i], e.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// HandleKey Enter / 逗号 提交缓冲区；缓冲区为空时 Backspace 删除最后一个标签
func (e *Editor) HandleKey(key string) bool {
	switch key {
	case KeyEnter, KeyComma:
		return e.AddTag(e.Buffer)
	case KeyBackspace:
		if e.Buffer != "" || len(e.Tags) == 0 {
			return false
		}
		e.Tags = e.Tags[:len(e.Tags)-1:len(e.Tags)-1]
		return true
	}
	return false
}
