package memory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// ErrInvalidHandle is returned when a handle was not created by this Host.
var ErrInvalidHandle = errors.New("handle does not belong to this host")

// ErrNotAttached is returned by Detach when child is not a child of parent.
var ErrNotAttached = errors.New("node is not attached to parent")

// OpKind names a host primitive.
type OpKind string

const (
	OpCreate      OpKind = "create"
	OpAttach      OpKind = "attach"
	OpDetach      OpKind = "detach"
	OpSet         OpKind = "set"
	OpRemove      OpKind = "remove"
	OpSubscribe   OpKind = "subscribe"
	OpUnsubscribe OpKind = "unsubscribe"
)

// Op is one recorded host mutation.
type Op struct {
	Kind   OpKind `json:"op"`
	Node   int    `json:"node"`
	Tag    string `json:"tag,omitempty"`
	Parent int    `json:"parent,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  any    `json:"value,omitempty"`
}

func (o Op) String() string {
	switch o.Kind {
	case OpCreate:
		return fmt.Sprintf("create #%d <%s>", o.Node, o.Tag)
	case OpAttach, OpDetach:
		return fmt.Sprintf("%s #%d -> #%d", o.Kind, o.Node, o.Parent)
	case OpSet:
		return fmt.Sprintf("set #%d %s=%v", o.Node, o.Key, o.Value)
	default:
		return fmt.Sprintf("%s #%d %s", o.Kind, o.Node, o.Key)
	}
}

// Node is a materialized in-memory host node.
type Node struct {
	ID       int
	Tag      string
	Props    map[string]any
	Handlers map[string]*domain.Handler
	Parent   *Node
	Children []*Node
}

// Text returns the content of a text node.
func (n *Node) Text() string {
	if n.Tag != domain.TextTag {
		return ""
	}
	return fmt.Sprint(n.Props[domain.KeyNodeValue])
}

// Host is a recording ports.Host backed by plain Go structs.
// It keeps a log of every primitive call, which makes it the reference host
// for tests and for the command line renderer. Safe for concurrent use.
type Host struct {
	mu     sync.Mutex
	root   *Node
	nodes  map[int]*Node
	nextID int
	ops    []Op
}

var _ ports.Host = (*Host)(nil)

// NewHost creates a host with an empty root node (#0).
func NewHost() *Host {
	root := &Node{ID: 0, Tag: "#root", Props: map[string]any{}, Handlers: map[string]*domain.Handler{}}
	return &Host{
		root:   root,
		nodes:  map[int]*Node{0: root},
		nextID: 1,
	}
}

// Root returns the handle of the root node, to be passed to Mount.
func (h *Host) Root() ports.Handle {
	return h.root
}

func (h *Host) node(handle ports.Handle) (*Node, error) {
	n, ok := handle.(*Node)
	if !ok || n == nil || h.nodes[n.ID] != n {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, handle)
	}
	return n, nil
}

// CreateNode creates a detached node. Props are applied by the caller.
func (h *Host) CreateNode(kind string, props domain.Props) (ports.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := &Node{
		ID:       h.nextID,
		Tag:      kind,
		Props:    map[string]any{},
		Handlers: map[string]*domain.Handler{},
	}
	h.nextID++
	h.nodes[n.ID] = n
	h.ops = append(h.ops, Op{Kind: OpCreate, Node: n.ID, Tag: kind})
	return n, nil
}

func (h *Host) Attach(parent, child ports.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.node(parent)
	if err != nil {
		return err
	}
	c, err := h.node(child)
	if err != nil {
		return err
	}
	if c.Parent != nil {
		c.Parent.removeChild(c)
	}
	c.Parent = p
	p.Children = append(p.Children, c)
	h.ops = append(h.ops, Op{Kind: OpAttach, Node: c.ID, Parent: p.ID})
	return nil
}

func (h *Host) Detach(parent, child ports.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.node(parent)
	if err != nil {
		return err
	}
	c, err := h.node(child)
	if err != nil {
		return err
	}
	if c.Parent != p || !p.removeChild(c) {
		return fmt.Errorf("%w: #%d under #%d", ErrNotAttached, c.ID, p.ID)
	}
	c.Parent = nil
	h.forget(c)
	h.ops = append(h.ops, Op{Kind: OpDetach, Node: c.ID, Parent: p.ID})
	return nil
}

func (h *Host) SetProperty(node ports.Handle, key string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.node(node)
	if err != nil {
		return err
	}
	n.Props[key] = value
	h.ops = append(h.ops, Op{Kind: OpSet, Node: n.ID, Key: key, Value: value})
	return nil
}

func (h *Host) RemoveProperty(node ports.Handle, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.node(node)
	if err != nil {
		return err
	}
	delete(n.Props, key)
	h.ops = append(h.ops, Op{Kind: OpRemove, Node: n.ID, Key: key})
	return nil
}

func (h *Host) Subscribe(node ports.Handle, event string, handler *domain.Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.node(node)
	if err != nil {
		return err
	}
	n.Handlers[event] = handler
	h.ops = append(h.ops, Op{Kind: OpSubscribe, Node: n.ID, Key: event})
	return nil
}

func (h *Host) Unsubscribe(node ports.Handle, event string, handler *domain.Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.node(node)
	if err != nil {
		return err
	}
	if n.Handlers[event] == handler {
		delete(n.Handlers, event)
	}
	h.ops = append(h.ops, Op{Kind: OpUnsubscribe, Node: n.ID, Key: event})
	return nil
}

// Dispatch invokes the handler subscribed to event on node id.
// The handler runs without the host lock held.
func (h *Host) Dispatch(id int, event string, payload any) error {
	h.mu.Lock()
	n, ok := h.nodes[id]
	var handler *domain.Handler
	if ok {
		handler = n.Handlers[event]
	}
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: #%d", ErrInvalidHandle, id)
	}
	if handler == nil {
		return fmt.Errorf("node #%d has no '%s' handler", id, event)
	}
	handler.Call(payload)
	return nil
}

// Find returns the first attached node in pre-order for which match is true.
func (h *Host) Find(match func(*Node) bool) *Node {
	h.mu.Lock()
	defer h.mu.Unlock()

	var found *Node
	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		if match(n) {
			found = n
			return true
		}
		for _, c := range n.Children {
			if visit(c) {
				return true
			}
		}
		return false
	}
	for _, c := range h.root.Children {
		if visit(c) {
			break
		}
	}
	return found
}

// FindTag returns the first attached node with the given tag.
func (h *Host) FindTag(tag string) *Node {
	return h.Find(func(n *Node) bool { return n.Tag == tag })
}

// Ops returns a copy of the recorded operation log.
func (h *Host) Ops() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Op(nil), h.ops...)
}

// ResetOps clears the operation log and returns what it held.
func (h *Host) ResetOps() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	ops := h.ops
	h.ops = nil
	return ops
}

// CountOps returns how many recorded operations have the given kind.
func (h *Host) CountOps(kind OpKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, op := range h.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the number of nodes currently attached below the root.
func (h *Host) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	var count func(*Node)
	count = func(node *Node) {
		for _, c := range node.Children {
			n++
			count(c)
		}
	}
	count(h.root)
	return n
}

// Markup renders the attached tree as indented pseudo-markup.
func (h *Host) Markup() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	for _, c := range h.root.Children {
		writeMarkup(&b, c, 0)
	}
	return b.String()
}

func writeMarkup(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.Tag == domain.TextTag {
		fmt.Fprintf(b, "%s%s\n", indent, n.Text())
		return
	}

	fmt.Fprintf(b, "%s<%s", indent, n.Tag)
	keys := make([]string, 0, len(n.Props))
	for k := range n.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%q", k, fmt.Sprint(n.Props[k]))
	}
	events := make([]string, 0, len(n.Handlers))
	for e := range n.Handlers {
		events = append(events, e)
	}
	sort.Strings(events)
	for _, e := range events {
		fmt.Fprintf(b, " @%s", e)
	}

	if len(n.Children) == 0 {
		b.WriteString(" />\n")
		return
	}
	b.WriteString(">\n")
	for _, c := range n.Children {
		writeMarkup(b, c, depth+1)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, n.Tag)
}

func (n *Node) removeChild(c *Node) bool {
	for i, child := range n.Children {
		if child == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// forget drops a detached subtree from the id index.
func (h *Host) forget(n *Node) {
	delete(h.nodes, n.ID)
	for _, c := range n.Children {
		h.forget(c)
	}
}
