package policy_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/policy"
)

func strPtr(s string) *string { return &s }

func TestCanView(t *testing.T) {
	ticket := &domain.Ticket{ID: "t1", CreatorID: "creator", AssigneeID: strPtr("assignee")}

	cases := []struct {
		name string
		p    domain.Principal
		want bool
	}{
		{"admin views any", domain.Principal{ID: "x", Role: domain.RoleAdmin}, true},
		{"agent views any", domain.Principal{ID: "x", Role: domain.RoleAgent}, true},
		{"creator views own", domain.Principal{ID: "creator", Role: domain.RoleUser}, true},
		{"assignee views assigned", domain.Principal{ID: "assignee", Role: domain.RoleTeacher}, true},
		{"stranger denied", domain.Principal{ID: "stranger", Role: domain.RoleUser}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, policy.CanView(tc.p, ticket)).Equal(tc.want)
		})
	}
}

func TestCanModify(t *testing.T) {
	ticket := &domain.Ticket{ID: "t1", CreatorID: "creator", AssigneeID: strPtr("assignee")}

	t.Run("staff modifies any fields", func(t *testing.T) {
		p := domain.Principal{ID: "x", Role: domain.RoleAgent}
		gt.Bool(t, policy.CanModify(p, ticket, []string{policy.FieldStatus, policy.FieldPriority})).True()
	})

	t.Run("non-staff assignee modifies freely", func(t *testing.T) {
		p := domain.Principal{ID: "assignee", Role: domain.RoleUser}
		gt.Bool(t, policy.CanModify(p, ticket, []string{policy.FieldStatus})).True()
	})

	t.Run("creator-only limited to title and description", func(t *testing.T) {
		p := domain.Principal{ID: "creator", Role: domain.RoleUser}
		gt.Bool(t, policy.CanModify(p, ticket, []string{policy.FieldTitle, policy.FieldDescription})).True()
		gt.Bool(t, policy.CanModify(p, ticket, []string{policy.FieldStatus})).False()
		gt.Bool(t, policy.CanModify(p, ticket, []string{policy.FieldTitle, policy.FieldPriority})).False()
	})

	t.Run("stranger denied", func(t *testing.T) {
		p := domain.Principal{ID: "stranger", Role: domain.RoleUser}
		gt.Bool(t, policy.CanModify(p, ticket, []string{policy.FieldTitle})).False()
	})
}

func TestCanDelete(t *testing.T) {
	ticket := &domain.Ticket{ID: "t1", CreatorID: "creator"}

	gt.Bool(t, policy.CanDelete(domain.Principal{ID: "a", Role: domain.RoleAdmin}, ticket)).True()
	gt.Bool(t, policy.CanDelete(domain.Principal{ID: "b", Role: domain.RoleAgent}, ticket)).False()
	gt.Bool(t, policy.CanDelete(domain.Principal{ID: "creator", Role: domain.RoleUser}, ticket)).False()
}

func TestCanCreateInternalMessage(t *testing.T) {
	gt.Bool(t, policy.CanCreateInternalMessage(domain.Principal{Role: domain.RoleAgent})).True()
	gt.Bool(t, policy.CanCreateInternalMessage(domain.Principal{Role: domain.RoleAdmin})).True()
	gt.Bool(t, policy.CanCreateInternalMessage(domain.Principal{Role: domain.RoleUser})).False()
	gt.Bool(t, policy.CanCreateInternalMessage(domain.Principal{Role: domain.RoleTeacher})).False()
}

func TestVisibleMessages(t *testing.T) {
	messages := []domain.Message{
		{ID: "m1", Body: "public", IsInternal: false},
		{ID: "m2", Body: "internal note", IsInternal: true},
		{ID: "m3", Body: "another public", IsInternal: false},
	}

	t.Run("staff sees all", func(t *testing.T) {
		visible := policy.VisibleMessages(domain.Principal{Role: domain.RoleAdmin}, messages)
		gt.Array(t, visible).Length(3)
	})

	t.Run("non-staff never sees internal", func(t *testing.T) {
		visible := policy.VisibleMessages(domain.Principal{Role: domain.RoleUser}, messages)
		gt.Array(t, visible).Length(2)
		for _, msg := range visible {
			gt.Bool(t, msg.IsInternal).False()
		}
	})
}
