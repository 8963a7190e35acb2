package accounts

import (
	"sort"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// Chart provides in-memory lookup over one company's chart of accounts.
type Chart struct {
	accounts []model.Account
	byID     map[int64]model.Account
	byCode   map[string]model.Account
	children map[int64][]int64
}

// Node is an account with its sub-accounts.
type Node struct {
	model.Account
	Children []Node `json:"children,omitempty"`
}

// NewChart creates a Chart from a slice of accounts.
func NewChart(accts []model.Account) *Chart {
	c := &Chart{
		accounts: accts,
		byID:     make(map[int64]model.Account, len(accts)),
		byCode:   make(map[string]model.Account, len(accts)),
		children: make(map[int64][]int64),
	}
	for _, a := range accts {
		c.byID[a.ID] = a
		c.byCode[a.Code] = a
	}
	for _, a := range accts {
		if a.ParentID != 0 {
			c.children[a.ParentID] = append(c.children[a.ParentID], a.ID)
		}
	}
	for _, ids := range c.children {
		sort.Slice(ids, func(i, j int) bool { return c.byID[ids[i]].Code < c.byID[ids[j]].Code })
	}
	return c
}

// All returns all accounts.
func (c *Chart) All() []model.Account {
	return c.accounts
}

// Get returns an account by ID.
func (c *Chart) Get(id int64) (model.Account, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (c *Chart) Exists(id int64) bool {
	_, ok := c.byID[id]
	return ok
}

// ByCode returns an account by its code.
func (c *Chart) ByCode(code string) (model.Account, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

// ByType returns all accounts of the given type.
func (c *Chart) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range c.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// ByKind returns all postable accounts of the given kind.
func (c *Chart) ByKind(kind model.AccountKind) []model.Account {
	var result []model.Account
	for _, a := range c.accounts {
		if a.Kind == kind && !a.IsGroup {
			result = append(result, a)
		}
	}
	return result
}

// Roots returns the top-level accounts ordered by code.
func (c *Chart) Roots() []model.Account {
	var roots []model.Account
	for _, a := range c.accounts {
		if a.ParentID == 0 || !c.Exists(a.ParentID) {
			roots = append(roots, a)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Code < roots[j].Code })
	return roots
}

// Children returns the direct sub-accounts of id ordered by code.
func (c *Chart) Children(id int64) []model.Account {
	ids := c.children[id]
	result := make([]model.Account, 0, len(ids))
	for _, cid := range ids {
		result = append(result, c.byID[cid])
	}
	return result
}

// Subtree returns id and the IDs of all its descendants.
func (c *Chart) Subtree(id int64) []int64 {
	ids := []int64{id}
	for i := 0; i < len(ids); i++ {
		ids = append(ids, c.children[ids[i]]...)
	}
	return ids
}

// IsDescendant reports whether candidate sits somewhere below ancestor.
func (c *Chart) IsDescendant(ancestor, candidate int64) bool {
	for _, id := range c.Subtree(ancestor)[1:] {
		if id == candidate {
			return true
		}
	}
	return false
}

// Path returns the chain of accounts from the root down to id.
func (c *Chart) Path(id int64) []model.Account {
	var path []model.Account
	seen := make(map[int64]bool)
	for cur, ok := c.byID[id]; ok && !seen[cur.ID]; cur, ok = c.byID[cur.ParentID] {
		seen[cur.ID] = true
		path = append([]model.Account{cur}, path...)
	}
	return path
}

// Tree returns the chart as nested nodes.
func (c *Chart) Tree() []Node {
	roots := c.Roots()
	nodes := make([]Node, 0, len(roots))
	for _, r := range roots {
		nodes = append(nodes, c.node(r))
	}
	return nodes
}

func (c *Chart) node(a model.Account) Node {
	n := Node{Account: a}
	for _, child := range c.Children(a.ID) {
		n.Children = append(n.Children, c.node(child))
	}
	return n
}
