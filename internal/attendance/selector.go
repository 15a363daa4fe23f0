// Package attendance 实现单个场次的出欠选择状态机。
//
// 状态只有 unset / attending / declined 三种；一旦选定，只能在
// attending 与 declined 之间切换，没有回到 unset 的路径。
package attendance

import (
	"errors"

	"WeddingRSVP/internal/model"
)

var (
	ErrInvalidState = errors.New("attendance: invalid state")
	ErrCannotUnset  = errors.New("attendance: cannot return to unset")
)

// Selector 单个场次的选择器，OnChange 在每次被接受的变化后调用
type Selector struct {
	state    model.Attendance
	OnChange func(model.Attendance)
}

// New 以给定的初始状态创建选择器，非法初始值视为 unset
func New(initial model.Attendance) *Selector {
	if !isKnown(initial) {
		initial = model.AttendanceUnset
	}
	return &Selector{state: initial}
}

func (s *Selector) State() model.Attendance {
	return s.state
}

// Select 单选语义：选中即生效，无中间状态
func (s *Selector) Select(next model.Attendance) error {
	if err := Transition(s.state, next); err != nil {
		return err
	}
	if next == s.state {
		return nil
	}

	s.state = next
	if s.OnChange != nil {
		s.OnChange(next)
	}
	return nil
}

// Transition 检查 from -> next 是否允许，同值视为允许（无变化）
func Transition(from, next model.Attendance) error {
	if !isKnown(from) || !isKnown(next) {
		return ErrInvalidState
	}
	if next == model.AttendanceUnset {
		if from == model.AttendanceUnset {
			return nil
		}
		return ErrCannotUnset
	}
	return nil
}

func isKnown(v model.Attendance) bool {
	switch v {
	case model.AttendanceUnset, model.AttendanceAttending, model.AttendanceDeclined:
		return true
	}
	return false
}
