// Package access is the single place that says which roles may perform which
// operation. Services look the set up here instead of spelling role lists at
// call sites.
package access

import "github.com/taskforge-app/taskforge-backend/internal/projects/domain"

type Operation string

const (
	ProjectRead   Operation = "project.read"
	ProjectUpdate Operation = "project.update"
	ProjectDelete Operation = "project.delete"

	MemberAdd    Operation = "member.add"
	MemberRemove Operation = "member.remove"
	MemberList   Operation = "member.list"

	SprintRead   Operation = "sprint.read"
	SprintCreate Operation = "sprint.create"
	SprintUpdate Operation = "sprint.update"
	SprintDelete Operation = "sprint.delete"

	TaskRead   Operation = "task.read"
	TaskCreate Operation = "task.create"
	TaskUpdate Operation = "task.update"
	TaskDelete Operation = "task.delete"
)

var anyMember = []domain.Role{
	domain.RoleOwner, domain.RoleMaintainer, domain.RoleMember, domain.RoleViewer,
}

var policy = map[Operation][]domain.Role{
	ProjectRead:   anyMember,
	ProjectUpdate: {domain.RoleOwner, domain.RoleMaintainer},
	ProjectDelete: {domain.RoleOwner},

	MemberAdd:    {domain.RoleOwner, domain.RoleMaintainer},
	MemberRemove: {domain.RoleOwner, domain.RoleMaintainer},
	MemberList:   anyMember,

	SprintRead:   anyMember,
	SprintCreate: {domain.RoleOwner, domain.RoleMaintainer},
	SprintUpdate: {domain.RoleOwner, domain.RoleMaintainer},
	SprintDelete: {domain.RoleOwner, domain.RoleMaintainer},

	TaskRead:   anyMember,
	TaskCreate: {domain.RoleOwner, domain.RoleMaintainer, domain.RoleMember},
	TaskUpdate: {domain.RoleOwner, domain.RoleMaintainer, domain.RoleMember},
	TaskDelete: {domain.RoleOwner, domain.RoleMaintainer, domain.RoleMember},
}

// Allowed returns the roles permitted to perform op. Unknown operations get
// an empty set, which denies everyone.
func Allowed(op Operation) []domain.Role {
	return policy[op]
}

// Permits reports whether role may perform op.
func Permits(op Operation, role domain.Role) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}
