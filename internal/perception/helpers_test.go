package perception

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// el builds a 20x20 element centered on (cx, cy).
func el(t fataler, text string, cx, cy float64) TextElement {
	t.Helper()
	e, err := NewTextElement(text, 0.95, []Point{
		{cx - 10, cy - 10}, {cx + 10, cy - 10}, {cx + 10, cy + 10}, {cx - 10, cy + 10},
	})
	if err != nil {
		t.Fatalf("building element %q: %v", text, err)
	}
	return e
}

func texts(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.SourceText
	}
	return out
}
