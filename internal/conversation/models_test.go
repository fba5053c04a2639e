package conversation

import (
	"testing"
)

func TestCanonicalKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Toronto", "Toronto"},
		{"toronto", "Toronto"},
		{"  toronto  ", "Toronto"},
		{"TORONTO", "Toronto"},
		{"british columbia", "British Columbia"},
		{"british  columbia ", "British Columbia"},
		{"prince edward island", "Prince Edward Island"},
		{"General", "General"},
		{"", ""},
		{"   ", ""},
		{"quÉbec", "Québec"},
	}

	for _, tc := range cases {
		if got := CanonicalKey(tc.in); got != tc.want {
			t.Errorf("CanonicalKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestThreadAppendDoesNotAliasReceiver(t *testing.T) {
	original := NewThread("Toronto")
	original = original.Append(NewMessage(RoleUser, "first"))

	snapshot := original.Clone()
	grown := original.Append(NewMessage(RoleAssistant, "second"))

	if len(snapshot.Messages) != 1 {
		t.Fatalf("snapshot mutated: %d messages", len(snapshot.Messages))
	}
	if len(original.Messages) != 1 {
		t.Fatalf("receiver mutated by Append: %d messages", len(original.Messages))
	}
	if len(grown.Messages) != 2 {
		t.Fatalf("expected 2 messages after Append, got %d", len(grown.Messages))
	}

	// Appending to the snapshot must not leak into the grown thread.
	snapshot.Messages[0].Content = "overwritten"
	if grown.Messages[0].Content != "first" {
		t.Error("Clone shares backing storage with the thread it was cloned from")
	}
}

func TestThreadAppendPreservesOrder(t *testing.T) {
	th := NewThread("Banff")
	contents := []string{"one", "two", "three", "four", "five"}
	for i, c := range contents {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		th = th.Append(NewMessage(role, c))
	}

	if len(th.Messages) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(th.Messages))
	}
	for i, c := range contents {
		if th.Messages[i].Content != c {
			t.Errorf("message %d = %q, want %q", i, th.Messages[i].Content, c)
		}
	}
}

func TestThreadHistory(t *testing.T) {
	th := NewThread("Vancouver")
	th = th.Append(NewMessage(RoleUser, "things to do?"))
	th = th.Append(NewMessage(RoleAssistant, "Stanley Park, Granville Island."))

	items := th.History()
	if len(items) != 2 {
		t.Fatalf("expected 2 history items, got %d", len(items))
	}
	if items[0].Role != "user" || items[0].Content != "things to do?" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Role != "assistant" {
		t.Errorf("unexpected second item role: %s", items[1].Role)
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAssistant.Valid() {
		t.Error("expected user/assistant roles to be valid")
	}
	if Role("system").Valid() {
		t.Error("system is not a thread role")
	}
}
