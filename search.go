package edinet

import (
	"strconv"
	"strings"
)

// ExtractText returns the first non-empty text reachable from a node.
// Text is trimmed. Lists yield their first element with text. Objects try
// their "#text" member, then a "text" member, then every member in order.
func ExtractText(n *Node) (string, bool) {
	if n == nil {
		return "", false
	}

	switch n.Kind {
	case KindText:
		s := trimText(n.Text)
		return s, s != ""

	case KindList:
		for _, item := range n.Items {
			if s, ok := ExtractText(item); ok {
				return s, true
			}
		}

	case KindObject:
		for _, key := range []string{TextKey, "text"} {
			if v, ok := n.Get(key); ok {
				if s, ok := ExtractText(v); ok {
					return s, true
				}
			}
		}
		for _, key := range n.Keys() {
			if s, ok := ExtractText(n.members[key]); ok {
				return s, true
			}
		}
	}
	return "", false
}

// findFirst walks the tree breadth-first and returns the text of the first
// member whose key satisfies match and yields non-empty text. List elements
// are matched against their decimal index.
func findFirst(root *Node, match func(key string) bool) (string, bool) {
	if root == nil {
		return "", false
	}

	queue := []*Node{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		visit := func(key string, child *Node) (string, bool) {
			if match(key) {
				if s, ok := ExtractText(child); ok {
					return s, true
				}
			}
			if child != nil && child.Kind != KindText {
				queue = append(queue, child)
			}
			return "", false
		}

		switch current.Kind {
		case KindObject:
			for _, key := range current.keys {
				if s, ok := visit(key, current.members[key]); ok {
					return s, true
				}
			}
		case KindList:
			for i, item := range current.Items {
				if s, ok := visit(strconv.Itoa(i), item); ok {
					return s, true
				}
			}
		}
	}
	return "", false
}

// FindFirstValue returns the text of the shallowest member whose key equals one
// of keys. Keys are tried together at each level, not one after another.
func FindFirstValue(root *Node, keys ...string) (string, bool) {
	if len(keys) == 0 {
		return "", false
	}
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	return findFirst(root, func(key string) bool { return wanted[key] })
}

// FindFirstValueByKeyword returns the text of the shallowest member whose key
// contains one of keywords (case-sensitive)
func FindFirstValueByKeyword(root *Node, keywords ...string) (string, bool) {
	if len(keywords) == 0 {
		return "", false
	}
	return findFirst(root, func(key string) bool {
		for _, kw := range keywords {
			if strings.Contains(key, kw) {
				return true
			}
		}
		return false
	})
}
