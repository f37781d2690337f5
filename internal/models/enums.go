package models

import "strings"

// Role is the caller role attached to every request by the identity collaborator.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// IsStaff reports whether the role may claim and resolve complaints.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Category is the closed set of complaint categories.
type Category string

const (
	CategoryAcademic       Category = "academic"
	CategoryHostel         Category = "hostel"
	CategoryMess           Category = "mess"
	CategoryInternet       Category = "internet"
	CategoryInfrastructure Category = "infrastructure"
	CategoryFinance        Category = "finance"
	CategoryOther          Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAcademic,
	CategoryHostel,
	CategoryMess,
	CategoryInternet,
	CategoryInfrastructure,
	CategoryFinance,
	CategoryOther,
}

// ParseCategory normalises s and returns the matching category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Status is the complaint lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// ActiveStatuses are the non-terminal states; a student may own at most one
// complaint in any of them.
var ActiveStatuses = []Status{StatusOpen, StatusInProgress}

// Priority of a complaint. New complaints start at medium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Department is the administrative scope of an admin account.
type Department string

const (
	DepartmentHostel         Department = "hostel"
	DepartmentMess           Department = "mess"
	DepartmentAcademic       Department = "academic"
	DepartmentInternet       Department = "internet"
	DepartmentInfrastructure Department = "infrastructure"
	DepartmentOther          Department = "other"
	// DepartmentAll is the unscoped department of super admins and general admins.
	DepartmentAll Department = "all"
	// DepartmentNone is carried by students.
	DepartmentNone Department = "n/a"
)

var departmentCategory = map[Department]Category{
	DepartmentHostel:         CategoryHostel,
	DepartmentMess:           CategoryMess,
	DepartmentAcademic:       CategoryAcademic,
	DepartmentInternet:       CategoryInternet,
	DepartmentInfrastructure: CategoryInfrastructure,
	DepartmentOther:          CategoryOther,
}

var departmentAliases = map[string]Department{
	"general":            DepartmentAll,
	"superadmin":         DepartmentAll,
	"internet / network": DepartmentInternet,
	"network":            DepartmentInternet,
	"none":               DepartmentNone,
	"":                   DepartmentNone,
}

// ParseDepartment maps stored or legacy department strings onto the closed set.
func ParseDepartment(s string) (Department, bool) {
	d := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := departmentAliases[d]; ok {
		return alias, true
	}
	switch dep := Department(d); dep {
	case DepartmentAll, DepartmentNone:
		return dep, true
	default:
		if _, ok := departmentCategory[dep]; ok {
			return dep, true
		}
	}
	return "", false
}

// Unscoped reports whether the department sees every category.
func (d Department) Unscoped() bool {
	return d == DepartmentAll
}

// Category returns the complaint category owned by a scoped department.
func (d Department) Category() (Category, bool) {
	c, ok := departmentCategory[d]
	return c, ok
}

// Covers reports whether complaints of category c fall within d.
func (d Department) Covers(c Category) bool {
	if d.Unscoped() {
		return true
	}
	owned, ok := departmentCategory[d]
	return ok && owned == c
}

// DepartmentFor returns the department that owns category c. Finance has no
// departmental owner and is only visible to unscoped admins.
func DepartmentFor(c Category) (Department, bool) {
	for d, owned := range departmentCategory {
		if owned == c {
			return d, true
		}
	}
	return "", false
}

// Action tags an activity log entry.
type Action string

const (
	ActionCreated  Action = "CREATED"
	ActionClaimed  Action = "CLAIMED"
	ActionResolved Action = "RESOLVED"
	ActionRejected Action = "REJECTED"
)

// AuthorRole marks who wrote a complaint update.
type AuthorRole string

const (
	AuthorStudent AuthorRole = "student"
	AuthorAdmin   AuthorRole = "admin"
)

// AuthorRoleFor maps a caller role to the update author role.
func AuthorRoleFor(r Role) AuthorRole {
	if r == RoleStudent {
		return AuthorStudent
	}
	return AuthorAdmin
}
