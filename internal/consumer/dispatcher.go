package consumer

import "sync"

// Dispatcher 按设备串行化事件处理。
// 同一设备的读-改-写不允许交叉，不同设备互不阻塞。
type Dispatcher struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDispatcher 创建设备级调度器
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock 获取设备锁，返回解锁函数
func (d *Dispatcher) Lock(deviceID string) func() {
	d.mu.Lock()
	lock, ok := d.locks[deviceID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[deviceID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
