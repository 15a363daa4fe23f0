package allergy

import (
	"sync"
	"time"
)

// DefaultBlurDelay 失焦后延迟隐藏，让点击候选的操作先生效
const DefaultBlurDelay = 150 * time.Millisecond

// Panel 候选列表的显示状态。服务端不经手焦点事件，这是给嵌入式客户端
// （以及前端实现对照）用的显示模型，HTTP 接口不暴露它
type Panel struct {
	mu      sync.Mutex
	visible bool
	delay   time.Duration
	pending *time.Timer
}

func NewPanel(delay time.Duration) *Panel {
	if delay <= 0 {
		delay = DefaultBlurDelay
	}
	return &Panel{delay: delay}
}

// Focus 立即显示，并取消尚未执行的隐藏
func (p *Panel) Focus() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	p.visible = true
}

// Blur 在 delay 之后隐藏
func (p *Panel) Blur() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending != nil {
		p.pending.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(p.delay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		// 已被 Focus 或新的 Blur 取代
		if p.pending != t {
			return
		}
		p.visible = false
		p.pending = nil
	})
	p.pending = t
}

func (p *Panel) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}
