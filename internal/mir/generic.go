package mir

// GenericOptimizer is the narrow interface spec.md §1 carves out as an
// external collaborator: "MIR construction from typed AST and the
// generic MIR optimization pipeline (CSE, inlining, DCE proper)". The
// proof-guided eliminator's only contract with it (spec.md §4.3) is
// ordering — it must run first, so constant folding has had a chance to
// make checks trivially redundant before elimination looks for proofs.
//
// OptimizationPass/Pipeline below adapt the teacher's EVM-oriented
// optimizer (internal/ir/optimizations.go's ConstantFolding/
// DeadCodeElimination/CommonSubexpressionElimination passes over gas
// cost) into the same pass-interface shape for this IR; only constant
// folding is implemented in full here since it is the one pass the
// proof-guided eliminator's contract explicitly depends on; CSE,
// inlining, and "DCE proper" are named by spec.md §1 as out of scope and
// are represented by Passthrough, a pipeline of zero passes, rather than
// invented from scratch.
type GenericOptimizer interface {
	Optimize(prog *Program) bool
}

// OptimizationPass is one transformation in the generic pipeline.
type OptimizationPass interface {
	Name() string
	Description() string
	Apply(prog *Program) bool
}

// Pipeline runs a sequence of OptimizationPass until none report a
// change or the iteration cap is hit (mirrors the teacher's
// OptimizationPipeline.Run, generalized to iterate to a fixed point
// rather than a single pass over the list).
type Pipeline struct {
	passes []OptimizationPass
}

// NewPipeline builds a pipeline. With no passes it behaves as
// Passthrough.
func NewPipeline(passes ...OptimizationPass) *Pipeline {
	return &Pipeline{passes: passes}
}

// Passthrough is the zero-pass pipeline standing in for the external
// generic optimizer this spec does not define.
func Passthrough() *Pipeline { return &Pipeline{} }

const maxPipelineIterations = 8

func (p *Pipeline) Optimize(prog *Program) bool {
	changedOverall := false
	for i := 0; i < maxPipelineIterations; i++ {
		changed := false
		for _, pass := range p.passes {
			if pass.Apply(prog) {
				changed = true
			}
		}
		if !changed {
			break
		}
		changedOverall = true
	}
	return changedOverall
}

// ConstantFolding folds a BinOp whose two operands were each most
// recently defined by a ConstInst in the same block, replacing it with
// a single ConstInst. Adapted from the teacher's
// internal/ir/optimizations.go ConstantFolding pass (there: EVM word
// arithmetic; here: this IR's integer/float/bool BinOp set).
type ConstantFolding struct{}

func (ConstantFolding) Name() string { return "constant folding" }
func (ConstantFolding) Description() string {
	return "folds BinOp instructions whose operands are both known constants"
}

func (ConstantFolding) Apply(prog *Program) bool {
	changed := false
	for _, fn := range prog.Functions {
		for _, b := range fn.Blocks {
			consts := map[Place]Constant{}
			for i, inst := range b.Instructions {
				if c, ok := inst.(ConstInst); ok {
					consts[c.Dest] = c.Value
					continue
				}
				// Any other definition of a place ends its known constant value.
				delete(consts, inst.Result())
				bo, ok := inst.(BinOpInst)
				if !ok {
					continue
				}
				lv, lok := consts[bo.Left]
				rv, rok := consts[bo.Right]
				if !lok || !rok {
					continue
				}
				folded, ok := foldBinOp(bo.Op, lv, rv)
				if !ok {
					continue
				}
				b.Instructions[i] = ConstInst{Dest: bo.Dest, Value: folded}
				consts[bo.Dest] = folded
				changed = true
			}
		}
	}
	return changed
}

func foldBinOp(op string, l, r Constant) (Constant, bool) {
	li, lok := l.(IntConst)
	ri, rok := r.(IntConst)
	if lok && rok {
		switch op {
		case "+", "+w":
			return li + ri, true
		case "-", "-w":
			return li - ri, true
		case "*", "*w":
			return li * ri, true
		case "/":
			if ri == 0 {
				return nil, false
			}
			return li / ri, true
		case "%":
			if ri == 0 {
				return nil, false
			}
			return li % ri, true
		case "==":
			return BoolConst(li == ri), true
		case "!=":
			return BoolConst(li != ri), true
		case "<":
			return BoolConst(li < ri), true
		case "<=":
			return BoolConst(li <= ri), true
		case ">":
			return BoolConst(li > ri), true
		case ">=":
			return BoolConst(li >= ri), true
		}
	}
	lf, lfok := l.(FloatConst)
	rf, rfok := r.(FloatConst)
	if lfok && rfok {
		switch op {
		case "+":
			return lf + rf, true
		case "-":
			return lf - rf, true
		case "*":
			return lf * rf, true
		case "/":
			if rf == 0 {
				return nil, false
			}
			return lf / rf, true
		}
	}
	lb, lbok := l.(BoolConst)
	rb, rbok := r.(BoolConst)
	if lbok && rbok {
		switch op {
		case "&&":
			return BoolConst(lb && rb), true
		case "||":
			return BoolConst(lb || rb), true
		}
	}
	return nil, false
}
