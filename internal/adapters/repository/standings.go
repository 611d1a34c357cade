package repository

import "hash/fnv"

// Treap keyed on (balance DESC, player ASC). In-order traversal yields the
// standings from richest to poorest; subtree sizes give ranks in O(log n).

type node struct {
	player  string
	balance float64
	prio    uint64
	left    *node
	right   *node
	size    int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aBal, aName) ranks before (bBal, bName).
func less(aBal float64, aName string, bBal float64, bName string) bool {
	if aBal != bBal {
		return aBal > bBal
	}
	return aName < bName
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priorityOf hashes the player name so the tree shape does not depend on
// the order balances change in.
func priorityOf(player string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(player))
	return h.Sum64()
}

func insert(n *node, player string, balance float64) *node {
	if n == nil {
		return &node{player: player, balance: balance, prio: priorityOf(player), size: 1}
	}
	if less(balance, player, n.balance, n.player) {
		n.left = insert(n.left, player, balance)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, player, balance)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, player string, balance float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.player == player && n.balance == balance:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, player, balance)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, player, balance)
		}
	case less(balance, player, n.balance, n.player):
		n.left = deleteNode(n.left, player, balance)
	default:
		n.right = deleteNode(n.right, player, balance)
	}
	fix(n)
	return n
}

// countAbove returns how many players hold a strictly greater balance.
func countAbove(n *node, balance float64) int {
	if n == nil {
		return 0
	}
	if n.balance > balance {
		return 1 + nsize(n.left) + countAbove(n.right, balance)
	}
	return countAbove(n.left, balance)
}

// collectTopN appends up to limit players in standings order.
func collectTopN(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.player)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// assignRanksWithTies numbers sorted entries 1, 2, 2, 4: equal balances share
// a rank and the next rank skips past them. It matches countAbove + 1.
func assignRanksWithTies(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Balance == entries[i-1].Balance {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}
