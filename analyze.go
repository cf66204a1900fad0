package alias

import (
	"fmt"
	"io"

	"github.com/BarrensZeppelin/alias/ir"
	"github.com/sirupsen/logrus"
)

// Name is the name under which the analysis registers on a graph.
const Name = "alias"

type Config struct {
	// Logger receives build and invalidation events. Defaults to the
	// standard logrus logger.
	Logger logrus.FieldLogger

	// Hierarchy overrides the class hierarchy of the graph.
	Hierarchy ir.Hierarchy
}

// Analysis answers alias queries about the memory accesses of one graph.
// It is built on demand and invalidated by every structural change of the
// graph. It must not be used concurrently.
type Analysis struct {
	graph  *ir.Graph
	config Config
	log    logrus.FieldLogger
	disamb Disambiguator

	built   bool
	version uint64

	cls      *classifier
	escape   *escapeTracker
	pointers map[*ir.Inst]Pointer
	values   map[*ir.Inst]Pointer
}

// New creates an analysis for g and registers it on the graph.
func New(g *ir.Graph, config Config) *Analysis {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.Hierarchy == nil {
		config.Hierarchy = g.Hierarchy
	}
	a := &Analysis{
		graph:  g,
		config: config,
		log:    config.Logger.WithField("graph", g.Name),
		disamb: Disambiguator{Hierarchy: config.Hierarchy},
	}
	g.Register(a)
	return a
}

// For returns the analysis registered on g, creating one with the default
// configuration if there is none.
func For(g *ir.Graph) *Analysis {
	if a, ok := g.Analysis(Name).(*Analysis); ok {
		return a
	}
	return New(g, Config{})
}

func (a *Analysis) Name() string     { return Name }
func (a *Analysis) Graph() *ir.Graph { return a.graph }

// IsValid reports whether the analysis is built over the current graph.
func (a *Analysis) IsValid() bool {
	return a.built && a.version == a.graph.Version()
}

// IsBuilt is an alias of IsValid.
func (a *Analysis) IsBuilt() bool { return a.IsValid() }

// Invalidate drops all derived tables. The next query rebuilds them.
func (a *Analysis) Invalidate() {
	if !a.built {
		return
	}
	a.log.WithField("version", a.graph.Version()).Trace("alias analysis invalidated")
	a.built = false
	a.cls, a.escape, a.pointers, a.values = nil, nil, nil, nil
}

// Run builds the analysis over the current graph.
func (a *Analysis) Run() {
	g := a.graph
	a.cls = newClassifier(g, a.config.Hierarchy, a.log)
	a.escape = newEscapeTracker(g)
	a.escape.run()

	insts := g.Instructions()
	a.pointers = make(map[*ir.Inst]Pointer, len(insts))
	a.values = make(map[*ir.Inst]Pointer)
	allocs, escaped := 0, 0
	for _, inst := range insts {
		if inst.Op == ir.OpNewObject || inst.Op == ir.OpNewArray {
			allocs++
			if len(a.escape.sites[inst]) > 0 {
				escaped++
			}
		}
		if inst.Op.IsMemoryAccess() || mayHoldReference(inst.Type) {
			a.pointers[inst] = a.classify(inst)
		}
	}

	a.built = true
	a.version = g.Version()
	a.log.WithFields(logrus.Fields{
		"pointers":    len(a.pointers),
		"allocations": allocs,
		"escaped":     escaped,
	}).Debug("alias analysis built")
}

func (a *Analysis) ensure() {
	if !a.IsValid() {
		a.Run()
	}
}

func (a *Analysis) classify(inst *ir.Inst) Pointer {
	return a.withEscape(a.cls.pointer(inst))
}

func (a *Analysis) withEscape(p Pointer) Pointer {
	switch p.Origin.Kind {
	case OriginNone:
		p.Escaped = false
	case OriginLocalAlloc:
		p.Escaped = len(a.escape.sites[p.Origin.Site]) > 0
	default:
		p.Escaped = true
	}
	return p
}

// Classify returns the pointer of inst: the location it accesses for memory
// accesses, and the object it denotes otherwise.
func (a *Analysis) Classify(inst *ir.Inst) Pointer {
	a.ensure()
	if p, ok := a.pointers[inst]; ok {
		return p
	}
	p := a.classify(inst)
	a.pointers[inst] = p
	return p
}

// EscapeInfo returns the escape information of an allocation.
func (a *Analysis) EscapeInfo(alloc *ir.Inst) (*EscapeInfo, bool) {
	a.ensure()
	alloc = resolve(alloc)
	if alloc.Op != ir.OpNewObject && alloc.Op != ir.OpNewArray {
		return nil, false
	}
	return a.escape.info(alloc), true
}

// CheckRefAlias compares the objects denoted by two reference values.
func (a *Analysis) CheckRefAlias(v1, v2 *ir.Inst) Verdict {
	a.ensure()
	p1, p2 := a.valuePointer(v1), a.valuePointer(v2)
	return a.refAlias(p1, p2, nil, nil)
}

func (a *Analysis) valuePointer(v *ir.Inst) Pointer {
	if !v.Op.IsMemoryAccess() {
		return a.Classify(v)
	}
	if p, ok := a.values[v]; ok {
		return p
	}
	p := a.withEscape(a.cls.value(v))
	a.values[v] = p
	return p
}

// CheckInstAlias compares the locations accessed by two instructions.
// Instructions that are not memory accesses denote the object they produce.
func (a *Analysis) CheckInstAlias(i1, i2 *ir.Inst) Verdict {
	a.ensure()
	p1, p2 := a.Classify(i1), a.Classify(i2)
	if p1.Kind == WholeObject && p2.Kind == WholeObject {
		return a.refAlias(p1, p2, nil, nil)
	}

	var baseVerdict *Verdict
	base := func() Verdict {
		if baseVerdict == nil {
			v := a.refAlias(p1, p2, i1, i2)
			baseVerdict = &v
		}
		return *baseVerdict
	}

	switch a.disamb.Disambiguate(p1, p2, base) {
	case ForceNo:
		return NoAlias
	case ForceMust:
		return MustAlias
	}
	if v := base(); v != MustAlias {
		return v
	}
	return MayAlias
}

// refAlias compares the base objects of two pointers. When at1 and at2 are
// set the objects are compared at those instructions, and a local
// allocation only counts as escaped if it may escape before one of them.
func (a *Analysis) refAlias(p1, p2 Pointer, at1, at2 *ir.Inst) Verdict {
	o1, o2 := p1.Origin, p2.Origin
	if o1 == o2 {
		return MustAlias
	}
	if o2.Kind == OriginNone || o2.Kind == OriginLocalAlloc && o1.Kind != OriginNone {
		p1, p2 = p2, p1
		o1, o2 = o2, o1
		at1, at2 = at2, at1
	}

	switch o1.Kind {
	case OriginNone:
		switch o2.Kind {
		case OriginLocalAlloc, OriginConstPool, OriginStatic:
			return NoAlias
		}
		return MayAlias

	case OriginLocalAlloc:
		switch o2.Kind {
		case OriginLocalAlloc, OriginConstPool, OriginStatic:
			return NoAlias
		}
		if a.escape.mayHold(p2.Base, o1.Site) {
			return MayAlias
		}
		if p1.LocalCreated && !a.escapedFor(o1.Site, o2, at1, at2) {
			return NoAlias
		}
		return MayAlias
	}

	switch {
	case o1.Kind == OriginStatic || o2.Kind == OriginStatic:
		return NoAlias
	case o1.Kind == OriginConstPool && o2.Kind == OriginConstPool:
		return NoAlias
	case o1.Kind == OriginConstPool && o2.Kind != OriginUnknown,
		o2.Kind == OriginConstPool && o1.Kind != OriginUnknown:
		return NoAlias
	}
	return MayAlias
}

// escapedFor reports whether the allocation alloc may be reachable by the
// object with origin other. Without program points the flow-insensitive
// escape result is used. Otherwise an escape site must reach the access to
// the allocation, or, for objects that do not exist on entry, the access to
// the other object.
func (a *Analysis) escapedFor(alloc *ir.Inst, other Origin, atAlloc, atOther *ir.Inst) bool {
	sites := a.escape.sites[alloc]
	if len(sites) == 0 {
		return false
	}
	if atAlloc == nil || atOther == nil {
		return true
	}
	for s := range sites {
		if a.graph.Reaches(s, atAlloc) {
			return true
		}
		if other.Kind != OriginParameter && a.graph.Reaches(s, atOther) {
			return true
		}
	}
	return false
}

// Dump writes the pointer of every classified instruction, followed by the
// escape information of every allocation.
func (a *Analysis) Dump(w io.Writer) {
	a.ensure()
	fmt.Fprintf(w, "alias analysis of %s:\n", a.graph.Name)
	var allocs []*ir.Inst
	for _, inst := range a.graph.Instructions() {
		if inst.Op == ir.OpNewObject || inst.Op == ir.OpNewArray {
			allocs = append(allocs, inst)
		}
		if p, ok := a.pointers[inst]; ok {
			fmt.Fprintf(w, "\t%-6s %-10s %s\n", inst.Name(), p.Kind, p)
		}
	}
	sortInsts(allocs)
	for _, alloc := range allocs {
		info := a.escape.info(alloc)
		if !info.Escaped {
			fmt.Fprintf(w, "\t%s does not escape\n", alloc.Name())
			continue
		}
		fmt.Fprintf(w, "\t%s escapes at", alloc.Name())
		for _, s := range info.Sites {
			fmt.Fprintf(w, " %s", s.Name())
		}
		fmt.Fprintln(w)
	}
}
