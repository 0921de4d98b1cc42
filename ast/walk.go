package ast

// Order selects when Walk visits a node relative to its children.
type Order int

const (
	PreOrder Order = iota
	PostOrder
)

// Walk visits every node of the tree rooted at root exactly once, children
// left to right. Nil children are skipped. Walk stops at the first error
// returned by fn and returns it.
//
// The traversal keeps its own stack, so tree depth is not bounded by the
// goroutine stack.
func Walk(root Node, order Order, fn func(Node) error) error {
	if root == nil {
		return nil
	}

	type frame struct {
		n       Node
		visited bool
	}
	stack := []frame{{n: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.visited {
			if err := fn(top.n); err != nil {
				return err
			}
			continue
		}

		if order == PreOrder {
			if err := fn(top.n); err != nil {
				return err
			}
		} else {
			stack = append(stack, frame{n: top.n, visited: true})
		}

		kids := Children(top.n)
		for i := len(kids) - 1; i >= 0; i-- {
			if kids[i] != nil {
				stack = append(stack, frame{n: kids[i]})
			}
		}
	}
	return nil
}

// Children returns the direct children of n in evaluation order. Missing
// children are returned as nil entries.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Binary:
		return []Node{n.Left, n.Right}
	case *Print:
		return []Node{n.Expr}
	default:
		return nil
	}
}

// Count returns the number of nodes in the tree.
func Count(root Node) int {
	count := 0
	Walk(root, PreOrder, func(Node) error {
		count++
		return nil
	})
	return count
}
