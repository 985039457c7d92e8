// Package avl implements a height-balanced binary search tree whose nodes
// live in an arena and refer to each other by index.
//
// The tree never merges values on insert and never silently ignores a
// missing key on delete: both are caller errors and panic.
package avl

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
)

var (
	ErrDuplicateKey = errors.New("avl: duplicate key")
	ErrKeyNotFound  = errors.New("avl: key not found")
	ErrInvalidNode  = errors.New("avl: invalid node")
)

// NodeID addresses a node in the tree's arena. IDs are stable for the life
// of the node and may be reused once it is deleted.
type NodeID int32

// Nil is the absent node.
const Nil NodeID = -1

type node[K cmp.Ordered, V any] struct {
	key    K
	value  V
	parent NodeID
	left   NodeID
	right  NodeID
	height int32 // nodes on the longest downward path, so a leaf is 1
	live   bool
}

type Tree[K cmp.Ordered, V any] struct {
	nodes []node[K, V]
	free  []NodeID
	root  NodeID
	size  int
}

func New[K cmp.Ordered, V any]() *Tree[K, V] {
	return &Tree[K, V]{root: Nil}
}

func (t *Tree[K, V]) Len() int          { return t.size }
func (t *Tree[K, V]) Root() NodeID      { return t.root }
func (t *Tree[K, V]) Key(id NodeID) K   { return t.at(id).key }
func (t *Tree[K, V]) Value(id NodeID) V { return t.at(id).value }

func (t *Tree[K, V]) SetValue(id NodeID, value V) {
	t.at(id).value = value
}

func (t *Tree[K, V]) Parent(id NodeID) NodeID { return t.at(id).parent }
func (t *Tree[K, V]) Left(id NodeID) NodeID   { return t.at(id).left }
func (t *Tree[K, V]) Right(id NodeID) NodeID  { return t.at(id).right }

// Height reports the number of edges on the longest path from id down to a
// leaf. A leaf has height 0 and Nil has height -1.
func (t *Tree[K, V]) Height(id NodeID) int {
	return int(t.height(id)) - 1
}

// Insert attaches a new node holding key and value and rebalances up to
// the root. Inserting a key already present panics with ErrDuplicateKey;
// callers look the key up first.
func (t *Tree[K, V]) Insert(key K, value V) NodeID {
	if t.root == Nil {
		t.root = t.alloc(key, value, Nil)
		t.size++
		return t.root
	}

	n := t.root
	for {
		c := cmp.Compare(key, t.nodes[n].key)
		switch {
		case c < 0:
			if t.nodes[n].left == Nil {
				id := t.alloc(key, value, n)
				t.nodes[n].left = id
				t.size++
				t.rebalance(id)
				return id
			}
			n = t.nodes[n].left
		case c > 0:
			if t.nodes[n].right == Nil {
				id := t.alloc(key, value, n)
				t.nodes[n].right = id
				t.size++
				t.rebalance(id)
				return id
			}
			n = t.nodes[n].right
		default:
			panic(fmt.Errorf("%w: %v", ErrDuplicateKey, key))
		}
	}
}

// Get returns the node holding key.
func (t *Tree[K, V]) Get(key K) (NodeID, bool) {
	n := t.root
	for n != Nil {
		c := cmp.Compare(key, t.nodes[n].key)
		switch {
		case c < 0:
			n = t.nodes[n].left
		case c > 0:
			n = t.nodes[n].right
		default:
			return n, true
		}
	}
	return Nil, false
}

// Delete removes the node holding key. Deleting a key that is not in the
// tree panics with ErrKeyNotFound.
func (t *Tree[K, V]) Delete(key K) {
	id, ok := t.Get(key)
	if !ok {
		panic(fmt.Errorf("%w: %v", ErrKeyNotFound, key))
	}
	t.DeleteNode(id)
}

// DeleteNode removes id from the tree. A node with two children is replaced
// by its in-order successor, which has no left child, so the physical
// removal always happens at a node with at most one child. Rebalancing
// starts from that point.
func (t *Tree[K, V]) DeleteNode(id NodeID) {
	z := t.at(id)

	var from NodeID
	switch {
	case z.left == Nil:
		from = z.parent
		t.transplant(id, z.right)
	case z.right == Nil:
		from = z.parent
		t.transplant(id, z.left)
	default:
		y := t.Min(z.right)
		if t.nodes[y].parent != id {
			from = t.nodes[y].parent
			t.transplant(y, t.nodes[y].right)
			t.nodes[y].right = z.right
			t.nodes[z.right].parent = y
		} else {
			from = y
		}
		t.transplant(id, y)
		t.nodes[y].left = z.left
		t.nodes[z.left].parent = y
	}

	t.release(id)
	t.size--
	t.rebalance(from)
}

// Min returns the leftmost node of the subtree rooted at id.
func (t *Tree[K, V]) Min(id NodeID) NodeID {
	if id == Nil {
		return Nil
	}
	for t.nodes[id].left != Nil {
		id = t.nodes[id].left
	}
	return id
}

// Max returns the rightmost node of the subtree rooted at id.
func (t *Tree[K, V]) Max(id NodeID) NodeID {
	if id == Nil {
		return Nil
	}
	for t.nodes[id].right != Nil {
		id = t.nodes[id].right
	}
	return id
}

// Successor returns the node with the next larger key, or Nil if id holds
// the largest key.
func (t *Tree[K, V]) Successor(id NodeID) NodeID {
	n := t.at(id)
	if n.right != Nil {
		return t.Min(n.right)
	}
	for n.parent != Nil && t.nodes[n.parent].right == id {
		id = n.parent
		n = &t.nodes[id]
	}
	return n.parent
}

// Predecessor returns the node with the next smaller key, or Nil if id
// holds the smallest key.
func (t *Tree[K, V]) Predecessor(id NodeID) NodeID {
	n := t.at(id)
	if n.left != Nil {
		return t.Max(n.left)
	}
	for n.parent != Nil && t.nodes[n.parent].left == id {
		id = n.parent
		n = &t.nodes[id]
	}
	return n.parent
}

// All walks the tree in ascending key order. The sequence is lazy and may
// be ranged over any number of times, but the tree must not be modified
// while a walk is in progress.
func (t *Tree[K, V]) All() iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for n := t.Min(t.root); n != Nil; n = t.Successor(n) {
			if !yield(n) {
				return
			}
		}
	}
}

// Backward walks the tree in descending key order.
func (t *Tree[K, V]) Backward() iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for n := t.Max(t.root); n != Nil; n = t.Predecessor(n) {
			if !yield(n) {
				return
			}
		}
	}
}

func (t *Tree[K, V]) at(id NodeID) *node[K, V] {
	if id < 0 || int(id) >= len(t.nodes) || !t.nodes[id].live {
		panic(fmt.Errorf("%w: %d", ErrInvalidNode, id))
	}
	return &t.nodes[id]
}

func (t *Tree[K, V]) alloc(key K, value V, parent NodeID) NodeID {
	n := node[K, V]{
		key:    key,
		value:  value,
		parent: parent,
		left:   Nil,
		right:  Nil,
		height: 1,
		live:   true,
	}
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree[K, V]) release(id NodeID) {
	// Drop the key and value so the arena does not pin them.
	t.nodes[id] = node[K, V]{parent: Nil, left: Nil, right: Nil}
	t.free = append(t.free, id)
}

// transplant puts v in u's place under u's parent. u's own links are left
// untouched.
func (t *Tree[K, V]) transplant(u, v NodeID) {
	p := t.nodes[u].parent
	switch {
	case p == Nil:
		t.root = v
	case t.nodes[p].left == u:
		t.nodes[p].left = v
	default:
		t.nodes[p].right = v
	}
	if v != Nil {
		t.nodes[v].parent = p
	}
}

func (t *Tree[K, V]) height(id NodeID) int32 {
	if id == Nil {
		return 0
	}
	return t.nodes[id].height
}

func (t *Tree[K, V]) updateHeight(id NodeID) {
	n := &t.nodes[id]
	n.height = 1 + max(t.height(n.left), t.height(n.right))
}

func (t *Tree[K, V]) balance(id NodeID) int32 {
	if id == Nil {
		return 0
	}
	return t.height(t.nodes[id].left) - t.height(t.nodes[id].right)
}

// rebalance walks from id to the root restoring heights and rotating
// wherever the balance factor leaves [-1, 1].
func (t *Tree[K, V]) rebalance(id NodeID) {
	for id != Nil {
		t.updateHeight(id)
		switch b := t.balance(id); {
		case b > 1:
			if t.balance(t.nodes[id].left) < 0 {
				t.rotateLeft(t.nodes[id].left)
			}
			t.rotateRight(id)
		case b < -1:
			if t.balance(t.nodes[id].right) > 0 {
				t.rotateRight(t.nodes[id].right)
			}
			t.rotateLeft(id)
		}
		id = t.nodes[id].parent
	}
}

func (t *Tree[K, V]) rotateLeft(x NodeID) {
	r := t.nodes[x].right
	t.transplant(x, r)

	t.nodes[x].right = t.nodes[r].left
	if t.nodes[x].right != Nil {
		t.nodes[t.nodes[x].right].parent = x
	}
	t.nodes[r].left = x
	t.nodes[x].parent = r

	t.updateHeight(x)
	t.updateHeight(r)
}

func (t *Tree[K, V]) rotateRight(x NodeID) {
	l := t.nodes[x].left
	t.transplant(x, l)

	t.nodes[x].left = t.nodes[l].right
	if t.nodes[x].left != Nil {
		t.nodes[t.nodes[x].left].parent = x
	}
	t.nodes[l].right = x
	t.nodes[x].parent = l

	t.updateHeight(x)
	t.updateHeight(l)
}
