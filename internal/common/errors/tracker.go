package errors

import "sync"

// Tracker 记录最近一次失败的错误信息
//
// 各业务管理器内嵌 Tracker，失败时记录提示文本，成功时清空。
type Tracker struct {
	mu  sync.RWMutex
	msg string
}

// Fail 记录错误并原样返回
func (t *Tracker) Fail(err error) error {
	if err == nil {
		t.Clear()
		return nil
	}
	msg := err.Error()
	if appErr := GetAppError(err); appErr.Code != ErrUnknown.Code {
		msg = appErr.Message
	}
	t.mu.Lock()
	t.msg = msg
	t.mu.Unlock()
	return err
}

// Clear 清空错误信息
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.msg = ""
	t.mu.Unlock()
}

// LastError 返回最近一次失败的错误信息，成功后为空
func (t *Tracker) LastError() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.msg
}
