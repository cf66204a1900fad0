package a

type T struct {
	a, b int
}

func twice(p *T) int {
	x := p.a
	y := p.a // want `redundant load of the location read at line 8`
	return x + y
}

func stored(p *T, v int) int {
	x := p.a
	p.a = v
	return x + p.a
}

func other(p, q *T) int {
	x := p.a
	q.a = 1
	return x + p.a
}

func disjoint(p *T) int {
	x := p.a
	p.b = 1
	return x + p.a // want `redundant load of the location read at line 26`
}

func call(p *T, f func()) int {
	x := p.a
	f()
	return x + p.a
}

func elements(s []int) int {
	x := s[0]
	s[1] = 2
	return x + s[0] // want `redundant load of the location read at line 38`
}

func local() int {
	t := &T{a: 1}
	sink(t)
	return t.a
}

func sink(*T) {}

func through(s []int, p *int) int {
	x := s[0]
	*p = 2
	return x + s[0]
}
