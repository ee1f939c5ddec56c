package message

import "testing"

func TestRecentKeepsOrder(t *testing.T) {
	history := []Message{
		New(RoleUser, "one"),
		New(RoleAssistant, "two"),
		New(RoleUser, "three"),
	}

	got := Recent(history, 2)
	if len(got) != 2 || got[0].Content != "two" || got[1].Content != "three" {
		t.Fatalf("Recent = %+v", got)
	}
	got[0].Content = "changed"
	if history[1].Content != "two" {
		t.Fatal("Recent must not alias the input")
	}
	if Recent(history, 0) != nil {
		t.Fatal("Recent(0) should be nil")
	}
	if len(Recent(history, 10)) != 3 {
		t.Fatal("Recent with large n should return everything")
	}
}

func TestNewestReverses(t *testing.T) {
	history := []Message{New(RoleUser, "a"), New(RoleAssistant, "b"), New(RoleUser, "c"), New(RoleAssistant, "d")}
	got := Newest(history, 3)
	if len(got) != 3 || got[0].Content != "d" || got[2].Content != "b" {
		t.Fatalf("Newest = %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		history []Message
		wantErr bool
	}{
		{"empty", nil, false},
		{"valid", []Message{New(RoleUser, "hi"), New(RoleAssistant, "hello")}, false},
		{"bad role", []Message{{Role: "tool", Content: "x"}}, true},
		{"blank content", []Message{New(RoleUser, "  ")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.history); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpeaker(t *testing.T) {
	if New(RoleUser, "x").Speaker() != "User" {
		t.Error("user speaker")
	}
	if New(RoleAssistant, "x").Speaker() != "You (Assistant)" {
		t.Error("assistant speaker")
	}
}
