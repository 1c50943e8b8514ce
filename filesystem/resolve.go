package filesystem

import "strings"

// splitPath splits p on '/' dropping empty segments, so "/a//b/" is [a b]
func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	segs := raw[:0]
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Resolve walks from root along p. ok is false if any segment is missing.
func Resolve(root *Node, p string) (node *Node, ok bool) {
	return resolveSegs(root, splitPath(p))
}

func resolveSegs(root *Node, segs []string) (*Node, bool) {
	cur := root
	for _, seg := range segs {
		child, ok := cur.GetChild(seg)
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}
