package ir

// Dominance is computed with the iterative algorithm of Cooper, Harvey and
// Kennedy ("A Simple, Fast Dominance Algorithm") over a reverse postorder of
// the blocks reachable from the entry. Results are cached until the next
// structural change.

type domTree struct {
	idom map[*Block]*Block
	// rpo number of every reachable block.
	order map[*Block]int
}

func (g *Graph) domTree() *domTree {
	if g.dom == nil {
		g.dom = computeDominators(g)
	}
	return g.dom
}

func reversePostorder(entry *Block) []*Block {
	var post []*Block
	seen := map[*Block]bool{entry: true}
	type frame struct {
		b    *Block
		next int
	}
	stack := []frame{{b: entry}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.b.succs) {
			s := top.b.succs[top.next]
			top.next++
			if !seen[s] {
				seen[s] = true
				stack = append(stack, frame{b: s})
			}
			continue
		}
		post = append(post, top.b)
		stack = stack[:len(stack)-1]
	}
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

func computeDominators(g *Graph) *domTree {
	rpo := reversePostorder(g.entry)
	t := &domTree{
		idom:  make(map[*Block]*Block, len(rpo)),
		order: make(map[*Block]int, len(rpo)),
	}
	for i, b := range rpo {
		t.order[b] = i
	}

	intersect := func(a, b *Block) *Block {
		for a != b {
			for t.order[a] > t.order[b] {
				a = t.idom[a]
			}
			for t.order[b] > t.order[a] {
				b = t.idom[b]
			}
		}
		return a
	}

	t.idom[g.entry] = g.entry
	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var idom *Block
			for _, p := range b.preds {
				if _, done := t.idom[p]; !done {
					continue
				}
				if idom == nil {
					idom = p
				} else {
					idom = intersect(p, idom)
				}
			}
			if t.idom[b] != idom {
				t.idom[b] = idom
				changed = true
			}
		}
	}
	delete(t.idom, g.entry)
	return t
}

func (t *domTree) dominates(a, b *Block) bool {
	if a == b {
		return true
	}
	if _, ok := t.order[b]; !ok {
		return false
	}
	for b = t.idom[b]; b != nil; b = t.idom[b] {
		if b == a {
			return true
		}
	}
	return false
}

// reachability caches the transitive successors of blocks and the position
// of every instruction in its block.
type reachability struct {
	succs     map[*Block]map[*Block]bool
	positions map[*Inst]int
}

func (g *Graph) reachInfo() *reachability {
	if g.reach == nil {
		r := &reachability{
			succs:     make(map[*Block]map[*Block]bool),
			positions: make(map[*Inst]int),
		}
		for _, b := range g.blocks {
			for k, inst := range b.insts {
				r.positions[inst] = k
			}
		}
		g.reach = r
	}
	return g.reach
}

func (r *reachability) position(inst *Inst) int {
	if k, ok := r.positions[inst]; ok {
		return k
	}
	return inst.Index()
}

// from returns the blocks reachable from b through at least one edge.
func (r *reachability) from(b *Block) map[*Block]bool {
	if set, ok := r.succs[b]; ok {
		return set
	}
	set := make(map[*Block]bool)
	work := append([]*Block(nil), b.succs...)
	for len(work) > 0 {
		x := work[len(work)-1]
		work = work[:len(work)-1]
		if set[x] {
			continue
		}
		set[x] = true
		work = append(work, x.succs...)
	}
	r.succs[b] = set
	return set
}

// Reaches reports whether some execution can run b after a: b follows a
// in the same block, or b's block is reachable from a's block through at
// least one control flow edge.
func (g *Graph) Reaches(a, b *Inst) bool {
	if a.block == nil || b.block == nil {
		return false
	}
	r := g.reachInfo()
	if a.block == b.block && r.position(a) < r.position(b) {
		return true
	}
	return r.from(a.block)[b.block]
}
