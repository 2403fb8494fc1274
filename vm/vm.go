package vm

import (
	"context"
	"io"
	"math/rand"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

var log = commonlog.GetLogger("ncs.vm")

// DefaultMaxInstructions caps a run when Options.MaxInstructions is zero.
const DefaultMaxInstructions = 100000

// cancelCheckInterval is how many instructions run between context checks.
const cancelCheckInterval = 1024

// Options configures a VM.
type Options struct {
	// Table numbers the engine routines ACTION refers to. Nil means the
	// built-in table.
	Table *nwscript.Table

	// MaxInstructions aborts a run that executes more instructions.
	MaxInstructions int

	// Trace records every executed instruction.
	Trace bool

	// Output receives the text of the Print* routines. Nil discards it.
	Output io.Writer

	// Seed seeds Random.
	Seed int64
}

// ---------------------------------------------------------------------------
// VM: Stack machine over a decoded program
// ---------------------------------------------------------------------------

// VM executes one program. It is not safe for concurrent use.
type VM struct {
	opts    Options
	table   *nwscript.Table
	code    []bytecode.Instruction
	targets []int // jump target index per instruction, -1 when none

	actions map[string]ActionFunc
	calls   []ActionCall
	delayed []delayedAction
	rng     *rand.Rand
	ctx     context.Context

	state
	executed int

	runID   uuid.UUID
	trace   *Trace
	profile *Profile
}

// state is everything a deferred run swaps out.
type state struct {
	stack   stack
	bp      int
	savedBP []int
	returns []int
	pending []*Deferred
	pc      int
	halted  bool
}

// New prepares p for execution. The program must validate.
func New(p *bytecode.Program, opts Options) (*VM, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m := &VM{
		opts:    opts,
		table:   opts.Table,
		code:    make([]bytecode.Instruction, p.Len()),
		targets: make([]int, p.Len()),
		actions: map[string]ActionFunc{},
		profile: NewProfile(),
	}
	if m.table == nil {
		m.table = nwscript.Builtin()
	}
	if m.opts.MaxInstructions <= 0 {
		m.opts.MaxInstructions = DefaultMaxInstructions
	}
	if m.opts.Output == nil {
		m.opts.Output = io.Discard
	}
	for i := range m.code {
		m.code[i] = p.Instruction(i)
		m.targets[i] = p.JumpIndex(i)
	}
	m.bindBuiltins()
	m.Reset()
	return m, nil
}

// Reset rewinds the machine to the first instruction with an empty stack.
// Mocks stay registered.
func (m *VM) Reset() {
	m.state = state{}
	m.executed = 0
	m.calls = nil
	m.delayed = nil
	m.rng = rand.New(rand.NewSource(m.opts.Seed))
	m.ctx = context.Background()
	m.runID = uuid.New()
	m.trace = nil
	if m.opts.Trace {
		m.trace = newTrace(m.runID)
	}
	m.profile.Reset()
}

// Mock replaces the implementation of the named engine routine.
func (m *VM) Mock(name string, fn ActionFunc) error {
	if _, _, ok := m.table.Lookup(name); !ok {
		return errorf(ErrUnknownAction, "%s", name)
	}
	m.actions[name] = fn
	return nil
}

// Run executes from the current position until the program returns from
// its entry point, then runs any delayed commands in order of delay.
func (m *VM) Run(ctx context.Context) error {
	m.ctx = ctx
	defer func() { m.ctx = context.Background() }()
	if err := m.loop(ctx); err != nil {
		return err
	}
	return m.runDelayed(ctx)
}

// Step executes one instruction. It reports false once the program has
// halted.
func (m *VM) Step() (bool, error) {
	if m.halted {
		return false, nil
	}
	if err := m.step(); err != nil {
		return false, err
	}
	return !m.halted, nil
}

func (m *VM) loop(ctx context.Context) error {
	for !m.halted {
		if m.executed%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := m.step(); err != nil {
			return err
		}
	}
	return nil
}

func (m *VM) step() error {
	if m.pc < 0 || m.pc >= len(m.code) {
		// Running off the end of the program halts it.
		m.halted = true
		return nil
	}
	if m.executed >= m.opts.MaxInstructions {
		return &RuntimeError{Index: m.pc, Type: m.code[m.pc].Type,
			Err: errorf(ErrInstructionLimit, "executed %d instructions", m.executed)}
	}
	m.executed++

	i := m.pc
	in := &m.code[i]
	m.pc++
	m.profile.record(i, in.Type)
	if err := m.exec(i, in); err != nil {
		return &RuntimeError{Index: i, Type: in.Type, Err: err}
	}
	if m.trace != nil {
		m.trace.record(i, in, m.stack.len())
		log.Debugf("%5d  %-40s depth %d", i, in.String(), m.stack.len())
	}
	return nil
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// Stack returns a copy of the stack, bottom first.
func (m *VM) Stack() []Cell {
	return m.stack.snapshot(0, m.stack.len())
}

// Result returns the top cell, which holds the value of a conditional
// script after it halts.
func (m *VM) Result() (Cell, bool) {
	if m.stack.len() == 0 {
		return Cell{}, false
	}
	return m.stack.cells[m.stack.len()-1], true
}

// Halted reports whether the program has returned from its entry point.
func (m *VM) Halted() bool { return m.halted }

// PC returns the index of the next instruction.
func (m *VM) PC() int { return m.pc }

// Executed returns the number of instructions run since the last Reset.
func (m *VM) Executed() int { return m.executed }

// Calls returns every engine routine call in order.
func (m *VM) Calls() []ActionCall {
	return append([]ActionCall(nil), m.calls...)
}

// CallsTo returns the calls of the named routine.
func (m *VM) CallsTo(name string) []ActionCall {
	var out []ActionCall
	for _, c := range m.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// RunID identifies the current run in traces.
func (m *VM) RunID() uuid.UUID { return m.runID }

// Trace returns the execution trace, or nil when tracing is off.
func (m *VM) Trace() *Trace { return m.trace }

// Profile returns per-instruction execution counts.
func (m *VM) Profile() *Profile { return m.profile }
