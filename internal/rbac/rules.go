package rbac

// Permissions used by the client views.
const (
	PermQuizTake      = "quiz:take"
	PermQuizManage    = "quiz:manage"
	PermResultsView   = "results:view"
	PermResultsExport = "results:export"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizTake,
	},
	"admin": {
		"*", // everything
	},
}
