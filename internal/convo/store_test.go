package convo

import (
	"fmt"
	"testing"
)

func TestStore_WindowCap(t *testing.T) {
	s := NewStore()
	for i := 0; i < 12; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		s.Append("chat1", Turn{Role: role, Text: fmt.Sprintf("t%d", i)})
	}
	turns := s.Turns("chat1")
	if len(turns) != 10 {
		t.Fatalf("len(turns) = %d, want 10", len(turns))
	}
	if turns[0].Text != "t2" {
		t.Errorf("oldest turn = %q, want t2", turns[0].Text)
	}
	if turns[9].Text != "t11" {
		t.Errorf("newest turn = %q, want t11", turns[9].Text)
	}
}

func TestStore_TurnsReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("chat1", Turn{Role: RoleUser, Text: "hi"})
	turns := s.Turns("chat1")
	turns[0].Text = "mutated"
	if s.Turns("chat1")[0].Text != "hi" {
		t.Error("Turns leaked internal slice")
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Append("chat1", Turn{Role: RoleUser, Text: "hi"})
	s.Clear("chat1")
	if len(s.Turns("chat1")) != 0 {
		t.Error("Clear did not empty the window")
	}
	// Appending after Clear still works.
	s.Append("chat1", Turn{Role: RoleUser, Text: "again"})
	if len(s.Turns("chat1")) != 1 {
		t.Error("Append after Clear failed")
	}
}

func TestStore_PruneChats(t *testing.T) {
	s := NewStore()
	for i := 0; i < 25; i++ {
		s.Append(fmt.Sprintf("chat%d", i), Turn{Role: RoleUser, Text: "x"})
	}
	s.PruneChats()
	if s.Chats() != 20 {
		t.Fatalf("Chats = %d after prune, want 20", s.Chats())
	}
	if len(s.Turns("chat0")) != 0 {
		t.Error("oldest chat should have been evicted")
	}
	if len(s.Turns("chat24")) != 1 {
		t.Error("newest chat should survive")
	}
}

func TestCharacters(t *testing.T) {
	c := NewCharacters()
	if _, ok := c.Get("chat1"); ok {
		t.Error("unset chat should report no override")
	}
	c.Set("chat1", "You are a pirate.")
	p, ok := c.Get("chat1")
	if !ok || p != "You are a pirate." {
		t.Errorf("Get = %q, %v", p, ok)
	}
}

func TestTriggerNames_Default(t *testing.T) {
	n := NewTriggerNames("ava")
	if n.Get("chat1") != "ava" {
		t.Errorf("default trigger name = %q, want ava", n.Get("chat1"))
	}
	n.Set("chat1", "bot")
	if n.Get("chat1") != "bot" {
		t.Errorf("trigger name = %q, want bot", n.Get("chat1"))
	}
	if n.Get("chat2") != "ava" {
		t.Error("other chats keep the default name")
	}
}
