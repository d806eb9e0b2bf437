package model

// Roles. Superadmin roles are platform-level and not bound to a customer;
// the readonly variant is blocked from every mutating operation.
const (
	RoleSuperadmin         = "superadmin"
	RoleSuperadminReadonly = "superadmin_readonly"
	RoleAdmin              = "admin"
	RoleManager            = "manager"
	RoleUser               = "user"
	RoleViewer             = "viewer"
)

// User statuses
const (
	UserStatusActive    = "active"
	UserStatusPending   = "pending"
	UserStatusSuspended = "suspended"
)

// Customer statuses
const (
	CustomerStatusActive    = "active"
	CustomerStatusSuspended = "suspended"
	CustomerStatusDeleted   = "deleted"
)

// Plan tiers
const (
	PlanFree       = "free"
	PlanBusiness   = "business"
	PlanEnterprise = "enterprise"
)

// Task statuses
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
	TaskStatusBlocked    = "blocked"
)

// Task priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

func IsAdmin(role string) bool {
	return role == RoleAdmin
}

func IsManager(role string) bool {
	return role == RoleManager
}

func IsSuperadmin(role string) bool {
	return role == RoleSuperadmin
}

func IsReadOnlySuperadmin(role string) bool {
	return role == RoleSuperadminReadonly
}

// BypassesTenantScope reports whether a role sees across customers
func BypassesTenantScope(role string) bool {
	return role == RoleSuperadmin || role == RoleSuperadminReadonly
}

// CanMutate reports whether a role may perform any write at all
func CanMutate(role string) bool {
	return role != RoleSuperadminReadonly
}

// ValidRole reports whether a role value a customer admin may assign is known
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleUser, RoleViewer:
		return true
	}
	return false
}

// ValidTaskStatus reports whether a task status value is known
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone, TaskStatusBlocked:
		return true
	}
	return false
}

// ValidPriority reports whether a task priority value is known
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ValidPlan reports whether a plan tier value is known
func ValidPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanBusiness, PlanEnterprise:
		return true
	}
	return false
}
