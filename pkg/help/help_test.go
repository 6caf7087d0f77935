package help

import (
	"strings"
	"testing"
)

func TestQUICKREFNonEmpty(t *testing.T) {
	if len(QUICKREF) == 0 {
		t.Fatal("QUICKREF is empty")
	}
}

func TestQUICKREFContainsVersion(t *testing.T) {
	if !strings.Contains(QUICKREF, Version) {
		t.Errorf("QUICKREF does not contain version string %s", Version)
	}
}

func TestQUICKREFListsTopics(t *testing.T) {
	for _, topic := range TopicList {
		if !strings.Contains(QUICKREF, topic) {
			t.Errorf("QUICKREF does not mention topic %q", topic)
		}
	}
}

func TestTopicListMatchesTopics(t *testing.T) {
	for _, name := range TopicList {
		if _, ok := Topics[name]; !ok {
			t.Errorf("TopicList entry %q not in Topics map", name)
		}
	}
	if len(TopicList) != len(Topics) {
		t.Errorf("TopicList has %d entries, Topics %d", len(TopicList), len(Topics))
	}
}

func TestMatchTopicExact(t *testing.T) {
	name, content, err := MatchTopic("syntax")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "syntax" {
		t.Errorf("expected name 'syntax', got %q", name)
	}
	if content == "" {
		t.Error("expected non-empty content")
	}
}

func TestMatchTopicPrefix(t *testing.T) {
	name, _, err := MatchTopic("diag")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "diagnostics" {
		t.Errorf("expected 'diagnostics', got %q", name)
	}
}

func TestMatchTopicUnknown(t *testing.T) {
	for _, q := range []string{"nonexistent", "", "constructor"} {
		if _, _, err := MatchTopic(q); err == nil {
			t.Errorf("expected error for %q", q)
		}
	}
}

func TestStdlibIndex(t *testing.T) {
	idx := StdlibIndex()
	for _, want := range []string{"car", "equal?", "pi", "Total:"} {
		if !strings.Contains(idx, want) {
			t.Errorf("StdlibIndex missing %q", want)
		}
	}
}

func TestStdlibIndexCount(t *testing.T) {
	idx := StdlibIndex()
	if !strings.Contains(idx, "Total: 29 functions, 1 constants") {
		t.Errorf("unexpected totals:\n%s", idx)
	}
}

func TestMatchTopicAllExact(t *testing.T) {
	for _, topic := range TopicList {
		name, content, err := MatchTopic(topic)
		if err != nil {
			t.Errorf("MatchTopic(%q) error: %v", topic, err)
			continue
		}
		if name != topic || content == "" {
			t.Errorf("MatchTopic(%q) = %q, %d bytes", topic, name, len(content))
		}
	}
}
