package stack

import "testing"

func TestLIFO(t *testing.T) {
	t.Parallel()

	s := New[string](2)
	if _, ok := s.Pop(); ok {
		t.Fatal("Pop() on an empty stack reported an item")
	}
	if _, ok := s.Peek(); ok {
		t.Fatal("Peek() on an empty stack reported an item")
	}

	for _, item := range []string{"(", "[", "%{"} {
		s.Push(item)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if top, _ := s.Peek(); top != "%{" {
		t.Fatalf("Peek() = %q, want %%{", top)
	}

	for _, want := range []string{"%{", "[", "("} {
		got, ok := s.Pop()
		if !ok || got != want {
			t.Fatalf("Pop() = %q, %v, want %q", got, ok, want)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d after draining", s.Len())
	}
}
