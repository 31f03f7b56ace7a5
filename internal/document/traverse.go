package document

// PreOrder returns every block id of d in document order: roots in order, each followed depth-first by its children in order. Blocks unreachable from Roots (which
// Validate rejects) are appended in sorted id order so the result is still total and deterministic.
//
// A block reached twice means the hierarchy is not a tree; PreOrder reports that as an InvalidReferenceError instead of recursing forever.
func (d Document) PreOrder() ([]BlockID, error) {
	out := make([]BlockID, 0, len(d.Blocks))
	seen := make(map[BlockID]bool, len(d.Blocks))

	var stack []BlockID
	push := func(ids []BlockID) {
		for i := len(ids) - 1; i >= 0; i-- {
			stack = append(stack, ids[i])
		}
	}

	walk := func(start []BlockID) error {
		push(start)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			b, ok := d.Blocks[id]
			if !ok {
				continue
			}
			if seen[id] {
				return invalidRef(id, "children", id, "block reached twice during traversal")
			}
			seen[id] = true
			out = append(out, id)
			push(b.Children)
		}
		return nil
	}

	if err := walk(d.Roots); err != nil {
		return nil, err
	}
	// Detached subtrees: start from their tops first, then anything still unvisited.
	for _, id := range d.IDs() {
		if seen[id] || d.Has(d.Blocks[id].ParentID) {
			continue
		}
		if err := walk([]BlockID{id}); err != nil {
			return nil, err
		}
	}
	for _, id := range d.IDs() {
		if seen[id] {
			continue
		}
		if err := walk([]BlockID{id}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Subtree returns id and all of its descendants in pre-order.
func (d Document) Subtree(id BlockID) ([]BlockID, error) {
	if _, ok := d.Blocks[id]; !ok {
		return nil, invalidRef(id, "id", id, "block does not exist")
	}
	var out []BlockID
	seen := map[BlockID]bool{}
	stack := []BlockID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			return nil, invalidRef(cur, "children", cur, "block reached twice during traversal")
		}
		seen[cur] = true
		out = append(out, cur)
		b, ok := d.Blocks[cur]
		if !ok {
			return nil, invalidRef(cur, "children", cur, "child does not exist")
		}
		for i := len(b.Children) - 1; i >= 0; i-- {
			stack = append(stack, b.Children[i])
		}
	}
	return out, nil
}

// Depth returns the number of ancestors of id (0 for roots).
func (d Document) Depth(id BlockID) (int, error) {
	anc, err := d.Ancestors(id)
	if err != nil {
		return 0, err
	}
	return len(anc), nil
}
