package template

import "testing"

func TestRenderVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		title, msg  string
		data        map[string]any
		wantT, want string
	}{
		{
			name:  "all keys present",
			title: "Hi {name}", msg: "{name} at {place}",
			data:  map[string]any{"name": "X", "place": "Y"},
			wantT: "Hi X", want: "X at Y",
		},
		{
			name:  "missing key returns originals",
			title: "Hi {name}", msg: "msg",
			data:  map[string]any{},
			wantT: "Hi {name}", want: "msg",
		},
		{
			name:  "nil data returns originals",
			title: "Hi {name}", msg: "{name}",
			data:  nil,
			wantT: "Hi {name}", want: "{name}",
		},
		{
			name:  "non-string values coerced",
			title: "Room {room}", msg: "in {mins} min",
			data:  map[string]any{"room": 204, "mins": 5},
			wantT: "Room 204", want: "in 5 min",
		},
		{
			name:  "missing key in message blocks title too",
			title: "Hi {name}", msg: "at {place}",
			data:  map[string]any{"name": "X"},
			wantT: "Hi {name}", want: "at {place}",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			gotT, gotM := Render(tt.title, tt.msg, tt.data)
			if gotT != tt.wantT || gotM != tt.want {
				t.Fatalf("Render = (%q, %q), want (%q, %q)", gotT, gotM, tt.wantT, tt.want)
			}
		})
	}
}
