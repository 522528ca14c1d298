package logfile

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSendAppendsJSONLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "notify.log")
	n, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer n.Close()

	if err := n.Send(context.Background(), "one", "first", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := n.Send(context.Background(), "two", "second", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var titles []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		titles = append(titles, rec.Title)
	}
	if len(titles) != 2 || titles[0] != "one" || titles[1] != "two" {
		t.Fatalf("titles = %v, want [one two]", titles)
	}
}

func TestClosedNotifierUnavailable(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "notify.log")
	n, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n.Available() {
		t.Fatal("closed notifier must report unavailable")
	}
	if err := n.Send(context.Background(), "t", "m", nil); err == nil {
		t.Fatal("send after close must fail")
	}
}
