package emu

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Pull resolves a path one segment at a time. Segments are strings for
// record keys and ints for sequence indexes. It fails with ErrPathNotFound
// if any segment is absent or the container at that point is not indexable
// by the segment.
func (r *Record) Pull(path ...any) (any, error) {
	var cur any = r
	for _, seg := range path {
		switch node := cur.(type) {
		case *Record:
			key, ok := seg.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not indexable by %v", ErrPathNotFound, joinPath(path), seg)
			}
			val, ok := node.Get(key)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(path))
			}
			cur = val
		case []any:
			idx, ok := seg.(int)
			if !ok || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(path))
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(path))
		}
	}
	return cur, nil
}

// PullString splits a delimiter-joined path and calls Pull. Numeric
// segments index sequences.
func (r *Record) PullString(path string, delimiter string) (any, error) {
	return r.Pull(SplitPath(path, delimiter)...)
}

// Push stores a value at the path, creating intermediate containers as
// needed: a record when the next segment is a string, a sequence when it is
// an int. A nil final segment creates the intermediates without storing
// anything. A successful push that changes the stored value logs the
// top-level key in the modified-keys log.
func (r *Record) Push(val any, path ...any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrPathNotFound)
	}
	topKey, ok := path[0].(string)
	if !ok {
		return fmt.Errorf("%w: record is not indexable by %v", ErrPathNotFound, path[0])
	}
	for i, seg := range path {
		if seg == nil && i != len(path)-1 {
			return fmt.Errorf("%w: %s has a nil intermediate segment", ErrPathNotFound, joinPath(path))
		}
	}
	val = r.adopt(val)

	changed := path[len(path)-1] != nil
	if changed {
		if prev, err := r.Pull(path...); err == nil && deepEqual(prev, val) {
			changed = false
		}
	}

	if _, err := setAt(r, r, path, val); err != nil {
		return err
	}
	if changed {
		r.logModified(topKey)
	}
	return nil
}

// setPath stores a value without touching the modified-keys log.
func (r *Record) setPath(path []any, val any) error {
	_, err := setAt(r, r, path, val)
	return err
}

// setAt walks one segment and recurses, returning the possibly-reallocated
// node so sequence growth propagates to the parent.
func setAt(owner *Record, node any, path []any, val any) (any, error) {
	seg := path[0]
	if seg == nil {
		// Final nil segment: intermediates exist, nothing to add.
		return node, nil
	}
	switch seg := seg.(type) {
	case string:
		rec, ok := node.(*Record)
		if !ok {
			return nil, fmt.Errorf("%w: segment %s is not a record", ErrPathNotFound, seg)
		}
		if len(path) == 1 {
			rec.set(seg, val)
			return node, nil
		}
		child, _ := rec.Get(seg)
		child = ensureContainer(owner, child, path[1])
		updated, err := setAt(owner, child, path[1:], val)
		if err != nil {
			return nil, err
		}
		rec.set(seg, updated)
		return node, nil
	case int:
		seq, ok := node.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: segment %d is not a sequence", ErrPathNotFound, seg)
		}
		if seg < 0 {
			return nil, fmt.Errorf("%w: negative index %d", ErrPathNotFound, seg)
		}
		for seg >= len(seq) {
			seq = append(seq, nil)
		}
		if len(path) == 1 {
			seq[seg] = val
			return seq, nil
		}
		child := ensureContainer(owner, seq[seg], path[1])
		updated, err := setAt(owner, child, path[1:], val)
		if err != nil {
			return nil, err
		}
		seq[seg] = updated
		return seq, nil
	default:
		return nil, fmt.Errorf("%w: unsupported segment %v", ErrPathNotFound, seg)
	}
}

func ensureContainer(owner *Record, child any, next any) any {
	if child != nil {
		return child
	}
	if _, ok := next.(int); ok {
		return []any{}
	}
	return owner.child()
}

// Pluck deletes the leaf at the path, then walks back toward the root
// deleting each now-empty ancestor container, stopping at the first
// populated one. A sequence ancestor with any populated sibling is left
// intact so blank cells above a populated cell in a column survive.
func (r *Record) Pluck(path ...any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrPathNotFound)
	}
	segs := slices.Clone(path)
	first := true
	for len(segs) > 0 {
		last := segs[len(segs)-1]
		segs = segs[:len(segs)-1]
		parent, err := r.Pull(segs...)
		if err != nil {
			return err
		}
		switch {
		case first:
			if err := r.removeFrom(segs, parent, last); err != nil {
				return err
			}
			first = false
		case isIndexSeg(last) && anyTruthy(parent):
			// Sequences with any populated sibling are left intact.
		default:
			val, err := r.Pull(append(slices.Clone(segs), last)...)
			if err != nil {
				return nil
			}
			if anyMember(val) {
				return nil
			}
			if err := r.removeFrom(segs, parent, last); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeFrom deletes parent[key], writing the shortened sequence back to
// the grandparent when the parent is a slice.
func (r *Record) removeFrom(parentPath []any, parent any, key any) error {
	switch node := parent.(type) {
	case *Record:
		k, ok := key.(string)
		if !ok {
			return fmt.Errorf("%w: record is not indexable by %v", ErrPathNotFound, key)
		}
		if !node.Has(k) {
			return fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(append(slices.Clone(parentPath), key)))
		}
		node.delete(k)
		return nil
	case []any:
		idx, ok := key.(int)
		if !ok || idx < 0 || idx >= len(node) {
			return fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(append(slices.Clone(parentPath), key)))
		}
		shortened := slices.Delete(slices.Clone(node), idx, idx+1)
		if len(parentPath) == 0 {
			return fmt.Errorf("%w: record root is not a sequence", ErrPathNotFound)
		}
		return r.setPath(parentPath, shortened)
	default:
		return fmt.Errorf("%w: %s", ErrPathNotFound, joinPath(append(slices.Clone(parentPath), key)))
	}
}

// anyMember reports whether an ancestor container is still populated. A
// record counts as populated while it has any key at all; a sequence counts
// as populated when any member is truthy, a literal zero included.
func anyMember(val any) bool {
	if rec, ok := val.(*Record); ok {
		return rec.Len() > 0
	}
	return anyTruthy(val)
}

func isIndexSeg(seg any) bool {
	_, ok := seg.(int)
	return ok
}

// SplitPath converts a delimiter-joined path string into segments, parsing
// numeric segments as sequence indexes.
func SplitPath(path string, delimiter string) []any {
	if delimiter == "" {
		delimiter = "."
		if !strings.Contains(path, ".") && strings.Contains(path, "/") {
			delimiter = "/"
		}
	}
	parts := strings.Split(path, delimiter)
	segs := make([]any, len(parts))
	for i, part := range parts {
		if n, err := strconv.Atoi(part); err == nil {
			segs[i] = n
		} else {
			segs[i] = part
		}
	}
	return segs
}

func joinPath(path []any) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		parts[i] = fmt.Sprintf("%v", seg)
	}
	return strings.Join(parts, ".")
}
