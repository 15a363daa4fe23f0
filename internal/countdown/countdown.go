// Package countdown 计算距离挙式的剩余时间。
package countdown

import "time"

// Remaining 剩余的天、时、分、秒；目标已过时全部为 0 且 Passed 为 true
type Remaining struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Passed  bool `json:"passed"`
}

func Until(now, target time.Time) Remaining {
	d := target.Sub(now)
	if d <= 0 {
		return Remaining{Passed: true}
	}

	total := int(d / time.Second)
	return Remaining{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}
