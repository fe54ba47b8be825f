package loopinfo

import (
	"errors"
	"sync"
)

// ErrEmptyStack is returned by Pop on an empty Stack.
var ErrEmptyStack = errors.New("loopinfo: empty stack")

// Stack is a LIFO of Loop for visiting nested loops innermost-first:
// children are pushed after their parent so they pop before it. The pass
// driver does not use it; pass.go orders loops with innermostFirst. Adapted from gospal's loop.Stack
// (github.com/nickng/gospal loop/stack.go), which served the same
// "innermost work first" role for nested loop detection.
type Stack struct {
	mu sync.Mutex
	s  []*Loop
}

func NewStack() *Stack { return &Stack{} }

func (s *Stack) Push(l *Loop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s = append(s.s, l)
}

func (s *Stack) Pop() (*Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.s)
	if n == 0 {
		return nil, ErrEmptyStack
	}
	l := s.s[n-1]
	s.s = s.s[:n-1]
	return l, nil
}

func (s *Stack) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.s) == 0
}

// PushInnermostFirst pushes loops so that Pop yields them innermost-first.
// Pop takes from the top of the LIFO, so the innermost loops need to end up
// on top: a preorder walk of the loop-nest forest (push a loop, then push
// its children) leaves every child sitting above its parent.
func PushInnermostFirst(s *Stack, loops []*Loop) {
	byHeader := make(map[*Loop][]*Loop)
	var roots []*Loop
	for _, l := range loops {
		if l.Parent == nil {
			roots = append(roots, l)
		} else {
			byHeader[l.Parent] = append(byHeader[l.Parent], l)
		}
	}
	var pre func(l *Loop)
	pre = func(l *Loop) {
		s.Push(l)
		for _, c := range byHeader[l] {
			pre(c)
		}
	}
	for _, r := range roots {
		pre(r)
	}
}
