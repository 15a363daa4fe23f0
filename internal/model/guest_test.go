package model

import (
	"encoding/json"
	"testing"
)

func TestToDearBlock_Defaults(t *testing.T) {
	g := Guest{ID: "g1", Name: "テスト太郎", Invite: []InviteType{InviteCeremony}}

	b := ToDearBlock(g)
	if b.Dear != "テスト太郎" {
		t.Errorf("Dear: got %q, want name fallback", b.Dear)
	}
	if b.Message != "" {
		t.Errorf("Message: got %q", b.Message)
	}
	if b.Family == nil || len(b.Family) != 0 {
		t.Errorf("Family: got %#v, want empty slice", b.Family)
	}

	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	if fam, ok := decoded["family"].([]any); !ok || len(fam) != 0 {
		t.Errorf("family should encode as []: %s", raw)
	}
}

func TestToDearBlock_FlattensOneLevel(t *testing.T) {
	g := Guest{
		ID:      "g1",
		Name:    "テスト太郎",
		Dear:    "太郎くん",
		Message: "ぜひ来てね",
		Invite:  []InviteType{InviteCeremony, InviteReception},
		Family: []Guest{
			{
				ID:     "g1-1",
				Name:   "テスト花子",
				Invite: []InviteType{InviteReception},
				Family: []Guest{{ID: "g1-1-1", Name: "孫"}},
			},
		},
	}

	b := ToDearBlock(g)
	if b.Dear != "太郎くん" || b.Message != "ぜひ来てね" {
		t.Errorf("explicit fields lost: %+v", b)
	}
	if len(b.Family) != 1 {
		t.Fatalf("Family: got %d members", len(b.Family))
	}
	member := b.Family[0]
	if member.Dear != "テスト花子" {
		t.Errorf("member Dear: got %q", member.Dear)
	}
	if len(member.Family) != 0 {
		t.Errorf("grandchildren kept: %+v", member.Family)
	}

	g.Invite[0] = InviteAfterParty
	if b.Invite[0] != InviteCeremony {
		t.Errorf("Invite shares backing array with source")
	}
}
