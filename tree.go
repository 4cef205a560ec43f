package edinet

// Kind identifies the shape of a Node
type Kind int

const (
	KindText Kind = iota
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Node is one value of a parsed XML document: a text leaf, a list of
// repeated sibling elements, or an object keyed by element/attribute name.
// Object keys keep their insertion order; search results depend on it.
type Node struct {
	Kind  Kind
	Text  string
	Items []*Node

	keys    []string
	members map[string]*Node
}

// NewText creates a text leaf
func NewText(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// NewList creates a list node
func NewList(items ...*Node) *Node {
	return &Node{Kind: KindList, Items: items}
}

// NewObject creates an empty object node
func NewObject() *Node {
	return &Node{Kind: KindObject, members: make(map[string]*Node)}
}

// Set stores v under key. A new key is appended; an existing key keeps its position.
func (n *Node) Set(key string, v *Node) *Node {
	if _, ok := n.members[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.members[key] = v
	return n
}

// Get returns the member stored under key
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindObject {
		return nil, false
	}
	v, ok := n.members[key]
	return v, ok
}

// Keys returns object keys in insertion order
func (n *Node) Keys() []string {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	return n.keys
}

// Len returns the number of members or items; 0 for text
func (n *Node) Len() int {
	switch n.Kind {
	case KindList:
		return len(n.Items)
	case KindObject:
		return len(n.keys)
	default:
		return 0
	}
}

// addChild stores a child element. A second element with the same name turns
// the member into a list in document order.
func (n *Node) addChild(name string, child *Node) {
	existing, ok := n.members[name]
	if !ok {
		n.Set(name, child)
		return
	}
	// Elements never parse to a list on their own, so a list member is always
	// an earlier repetition.
	if existing.Kind == KindList {
		existing.Items = append(existing.Items, child)
		return
	}
	n.members[name] = NewList(existing, child)
}
