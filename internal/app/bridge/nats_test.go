package bridge

import "testing"

func TestSubjectRoundTrip(t *testing.T) {
	cases := []int64{1, 42, 9000000000}

	for _, id := range cases {
		s := subject(id)
		got, err := userIDFromSubject(s)
		if err != nil {
			t.Fatalf("userIDFromSubject(%q): %v", s, err)
		}
		if got != id {
			t.Errorf("subject round trip: expected %d, got %d", id, got)
		}
	}
}

func TestUserIDFromSubjectRejectsForeignSubjects(t *testing.T) {
	cases := []string{
		"chat.group.7",
		"chat.user.",
		"chat.user.abc",
		"user.42",
	}

	for _, s := range cases {
		if _, err := userIDFromSubject(s); err == nil {
			t.Errorf("expected error for subject %q", s)
		}
	}
}
