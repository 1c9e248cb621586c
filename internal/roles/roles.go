package roles

import (
	"strings"

	"vinflow/internal/stages"
)

// Role is the closed set of operator roles.
type Role string

const (
	Admin        Role = "admin"
	ReconManager Role = "recon_manager"
	Service      Role = "service"
	Detail       Role = "detail"
)

// Capabilities is the explicit permission set attached to a role. A role
// either holds blanket stage authority or is scoped to AllowedStages; the
// approve capability is independent of the stage scope.
type Capabilities struct {
	AddUnits      bool
	Approve       bool
	AnyStage      bool
	AllowedStages []stages.Stage
	FullPipeline  bool
}

var capabilities = map[Role]Capabilities{
	Admin: {
		AddUnits:     true,
		Approve:      true,
		AnyStage:     true,
		FullPipeline: true,
	},
	ReconManager: {
		AddUnits:     true,
		Approve:      true,
		AnyStage:     true,
		FullPipeline: true,
	},
	Service: {
		AllowedStages: []stages.Stage{stages.ServiceQueue, stages.Service, stages.PartsHold},
		FullPipeline:  true,
	},
	Detail: {
		AllowedStages: []stages.Stage{stages.Detail},
		FullPipeline:  true,
	},
}

// All returns the known roles in a stable order.
func All() []Role {
	return []Role{Admin, ReconManager, Service, Detail}
}

// Parse converts a string into a known role.
func Parse(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	_, ok := capabilities[normalized]
	return normalized, ok
}

// For returns the capability set of a role. Unknown roles hold no
// capabilities at all.
func For(role Role) Capabilities {
	return capabilities[role]
}

// CanAddUnits reports whether the role may create units.
func CanAddUnits(role Role) bool {
	return For(role).AddUnits
}

// CanApprove reports whether the role may release units from the approval
// stage.
func CanApprove(role Role) bool {
	return For(role).Approve
}

// CanTransition decides whether a role may move a unit between two stages.
// Blanket-authority roles may perform any move. Stage-scoped roles need the
// current or target stage inside their allow-list. Leaving the approval
// stage additionally requires the approve capability regardless of scope.
func CanTransition(role Role, from, to stages.Stage) bool {
	caps := For(role)

	if from == stages.Approval && !caps.Approve {
		return false
	}
	if caps.AnyStage {
		return true
	}
	return stageAllowed(caps.AllowedStages, from) || stageAllowed(caps.AllowedStages, to)
}

func stageAllowed(allowed []stages.Stage, stage stages.Stage) bool {
	for _, s := range allowed {
		if s == stage {
			return true
		}
	}
	return false
}
