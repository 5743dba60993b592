package gridcalc

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// subscriptionKey addresses a set of cross-grid subscriptions by grid
// instance and cell ID. used for both the owner side (who subscribed)
// and the remote side (whose changes trigger callbacks).
type subscriptionKey struct {
	grid *Grid
	cell CellID
}

// crossGridSub is one live cross-grid dependency: when the remote cell
// changes, the callback re-evaluates the owning cell
type crossGridSub struct {
	token      Subscription
	owner      subscriptionKey
	remote     subscriptionKey
	remoteName string
	callback   func()
}

// Context is a registry of named grids plus an index of cross-grid
// subscriptions, shared by sibling Grid instances. it mediates
// subscriptions but never touches a grid's internal stores or graph.
// grid names are case-insensitive.
type Context struct {
	grids    map[string]*Grid // lowercased name -> grid
	names    []string         // registration order, original casing
	byOwner  map[subscriptionKey][]*crossGridSub
	byRemote map[subscriptionKey][]*crossGridSub
}

// NewContext creates an empty context
func NewContext() *Context {
	return &Context{
		grids:    make(map[string]*Grid),
		byOwner:  make(map[subscriptionKey][]*crossGridSub),
		byRemote: make(map[subscriptionKey][]*crossGridSub),
	}
}

// Register adds a named grid to the registry. names are compared
// case-insensitively.
func (c *Context) Register(name string, g *Grid) error {
	key := strings.ToLower(name)
	if key == "" {
		return NewAppError(InvalidArgument, "grid name must not be empty")
	}
	if _, exists := c.grids[key]; exists {
		return NewAppError(InvalidArgument, fmt.Sprintf("grid %q already registered", name))
	}
	c.grids[key] = g
	c.names = append(c.names, name)
	return nil
}

// GridByName looks up a registered grid, case-insensitively. returns
// nil when absent.
func (c *Context) GridByName(name string) *Grid {
	return c.grids[strings.ToLower(name)]
}

// GridNames returns the registered grid names in registration order
func (c *Context) GridNames() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Subscribe records that (owner, ownerCell) must be re-evaluated via
// callback whenever the named remote cell changes. the remote grid must
// be registered.
func (c *Context) Subscribe(owner *Grid, ownerCell CellID, remoteGridName string, remoteCell CellID, callback func()) (Subscription, error) {
	remoteGrid := c.GridByName(remoteGridName)
	if remoteGrid == nil {
		return "", NewAppError(NotFound, fmt.Sprintf("grid %q not found", remoteGridName))
	}

	sub := &crossGridSub{
		token:      Subscription(uuid.NewString()),
		owner:      subscriptionKey{grid: owner, cell: ownerCell},
		remote:     subscriptionKey{grid: remoteGrid, cell: remoteCell},
		remoteName: remoteGridName,
		callback:   callback,
	}
	c.byOwner[sub.owner] = append(c.byOwner[sub.owner], sub)
	c.byRemote[sub.remote] = append(c.byRemote[sub.remote], sub)
	return sub.token, nil
}

// UnsubscribeAll drops every cross-grid subscription owned by
// (owner, cell). called before a cell's subscriptions are rebuilt and
// when its formula is severed, so no stale subscription outlives the
// formula that created it.
func (c *Context) UnsubscribeAll(owner *Grid, cell CellID) {
	key := subscriptionKey{grid: owner, cell: cell}
	subs := c.byOwner[key]
	if len(subs) == 0 {
		return
	}
	delete(c.byOwner, key)
	for _, sub := range subs {
		c.removeRemote(sub)
	}
}

// SubscriptionCount returns the number of live subscriptions owned by
// (owner, cell)
func (c *Context) SubscriptionCount(owner *Grid, cell CellID) int {
	return len(c.byOwner[subscriptionKey{grid: owner, cell: cell}])
}

func (c *Context) removeRemote(sub *crossGridSub) {
	subs := c.byRemote[sub.remote]
	for i, candidate := range subs {
		if candidate.token == sub.token {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(c.byRemote, sub.remote)
	} else {
		c.byRemote[sub.remote] = subs
	}
}

// cellChanged fans a remote cell change out to every subscription
// watching it. callbacks run synchronously and may rebuild their own
// subscriptions, so the list is snapshotted first.
func (c *Context) cellChanged(g *Grid, cell CellID) {
	subs := c.byRemote[subscriptionKey{grid: g, cell: cell}]
	if len(subs) == 0 {
		return
	}
	snapshot := make([]*crossGridSub, len(subs))
	copy(snapshot, subs)
	for _, sub := range snapshot {
		sub.callback()
	}
}
