package vm

import (
	"context"
	"fmt"
	"sort"
)

// Deferred is the machine state STORE_STATE captures for an action
// argument: the globals, the caller's locals and where the deferred code
// begins.
type Deferred struct {
	Resume  int
	Globals []Cell
	Locals  []Cell
}

type delayedAction struct {
	delay float32
	d     *Deferred
}

// storeState captures bpBytes of globals below the base pointer and the
// top spBytes of locals. The deferred code starts two instructions later,
// after the jump that skips it.
func (m *VM) storeState(i int, bpBytes, spBytes int32) error {
	g, err := cellCount(bpBytes)
	if err != nil {
		return err
	}
	l, err := cellCount(spBytes)
	if err != nil {
		return err
	}
	if g < 0 || g > m.bp || m.bp > m.stack.len() {
		return fmt.Errorf("%w: %d global bytes below base %d", ErrBadOffset, bpBytes, m.bp)
	}
	if l < 0 || l > m.stack.len() {
		return fmt.Errorf("%w: %d local bytes on a stack of %d cells", ErrBadOffset, spBytes, m.stack.len())
	}
	m.pending = append(m.pending, &Deferred{
		Resume:  i + 2,
		Globals: m.stack.snapshot(m.bp-g, m.bp),
		Locals:  m.stack.snapshot(m.stack.len()-l, m.stack.len()),
	})
	return nil
}

// RunDeferred executes captured code on a fresh stack rebuilt from d, then
// restores the interrupted state. The instruction budget is shared with
// the main run.
func (m *VM) RunDeferred(ctx context.Context, d *Deferred) error {
	if d == nil {
		return nil
	}
	saved := m.state
	m.state = state{pc: d.Resume}
	m.stack.push(d.Globals...)
	m.bp = len(d.Globals)
	m.stack.push(d.Locals...)

	err := m.loop(ctx)
	m.state = saved
	return err
}

// runDelayed drains delayed commands in order of delay. Commands delayed
// while draining run in a later round.
func (m *VM) runDelayed(ctx context.Context) error {
	for len(m.delayed) > 0 {
		queue := m.delayed
		m.delayed = nil
		sort.SliceStable(queue, func(a, b int) bool { return queue[a].delay < queue[b].delay })
		for _, q := range queue {
			if err := m.RunDeferred(ctx, q.d); err != nil {
				return err
			}
		}
	}
	return nil
}
