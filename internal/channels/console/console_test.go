package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"notifyd/internal/notification"
)

func TestSendWritesLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	n := NewWriter(&buf)

	err := n.Send(context.Background(), "Lesson", "starts soon", &notification.SendOptions{
		Actions: []notification.Action{{ID: "snooze", Label: "Snooze"}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Lesson: starts soon") {
		t.Fatalf("output %q missing body", out)
	}
	if !strings.Contains(out, "[Snooze]") {
		t.Fatalf("output %q missing action label", out)
	}
}

func TestAlwaysAvailable(t *testing.T) {
	t.Parallel()
	n := New()
	if !n.Available() {
		t.Fatal("console must always be available")
	}
	if n.Cancel("any") {
		t.Fatal("console cannot retract output")
	}
}
