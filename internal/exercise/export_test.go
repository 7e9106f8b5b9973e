package exercise

// origins exposes the slot mapping to tests.
func (e *Engine) origins() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.order...)
}
