package policy

import "testing"

func TestCanModifyOwner(t *testing.T) {
	if !CanModify("usr_1", RoleUser, "usr_1") {
		t.Fatal("owner should be able to modify own content")
	}
}

func TestCanModifyAdmin(t *testing.T) {
	if !CanModify("usr_2", RoleAdmin, "usr_1") {
		t.Fatal("admin should be able to modify any content")
	}
}

func TestCanModifyDeniesEveryOtherRoleCombination(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleAuthor} {
		if CanModify("usr_2", role, "usr_1") {
			t.Fatalf("role %s should not modify another user's content", role)
		}
	}
}

func TestCanModifyDeniesAnonymous(t *testing.T) {
	if CanModify("", RoleAdmin, "") {
		t.Fatal("empty actor id must always be denied")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]Role{
		"admin":  RoleAdmin,
		"author": RoleAuthor,
		"user":   RoleUser,
		"":       RoleUser,
		"root":   RoleUser,
	}
	for raw, want := range cases {
		if got := Normalize(raw); got != want {
			t.Errorf("Normalize(%q) = %s, want %s", raw, got, want)
		}
	}
}
