package testrequest

import "fmt"

// -- Request Workflow State Machine --

type step int

const (
	stepAssign step = iota // binds an actor to the request
	stepUpdate             // submits the assigned actor's result
)

type slot int

const (
	slotTester slot = iota
	slotDoctor
)

type transitionRule struct {
	from Status
	to   Status
	role Role
	step step
	slot slot
}

// transitions holds every legal move. Nothing else in the package may special-case one.
var transitions = []transitionRule{
	{from: StatusInitiated, to: StatusLabTestInProgress, role: RoleTester, step: stepAssign, slot: slotTester},
	{from: StatusLabTestInProgress, to: StatusLabTestCompleted, role: RoleTester, step: stepUpdate, slot: slotTester},
	{from: StatusLabTestCompleted, to: StatusDoctorConsultationInProgress, role: RoleDoctor, step: stepAssign, slot: slotDoctor},
	{from: StatusDoctorConsultationInProgress, to: StatusCompleted, role: RoleDoctor, step: stepUpdate, slot: slotDoctor},
}

func findRule(from, to Status) (transitionRule, bool) {
	for _, r := range transitions {
		if r.from == from && r.to == to {
			return r, true
		}
	}
	return transitionRule{}, false
}

// ruleInto returns the rule whose target is to. Each status has at most one way in.
func ruleInto(to Status) (transitionRule, bool) {
	for _, r := range transitions {
		if r.to == to {
			return r, true
		}
	}
	return transitionRule{}, false
}

// CanTransition reports whether an actor with role may move a request from
// current to target. hasAssignment reports whether the assignee slot the move
// concerns is already set: assignment moves need it unset, update moves need
// it set.
func CanTransition(current, target Status, role Role, hasAssignment bool) bool {
	r, ok := findRule(current, target)
	if !ok || r.role != role {
		return false
	}
	if r.step == stepAssign {
		return !hasAssignment
	}
	return hasAssignment
}

// RequiredRole returns the role allowed to move a request into target.
func RequiredRole(target Status) (Role, bool) {
	r, ok := ruleInto(target)
	if !ok {
		return "", false
	}
	return r.role, true
}

// ValidateTransition decides whether actor may move req to target and, when it
// may not, returns an UnauthorizedError or InvalidTransitionError explaining why.
func ValidateTransition(req *Request, target Status, actor Actor) error {
	r, ok := findRule(req.Status, target)
	if !ok {
		return &InvalidTransitionError{Current: req.Status, Target: target, Reason: transitionHint(req.Status, target)}
	}
	if r.role != actor.Role {
		return &UnauthorizedError{Required: r.role, Actual: actor.Role}
	}

	assignee := req.AssignedTester
	if r.slot == slotDoctor {
		assignee = req.AssignedDoctor
	}

	switch r.step {
	case stepAssign:
		if assignee != nil {
			return &InvalidTransitionError{
				Current: req.Status,
				Target:  target,
				Reason:  fmt.Sprintf("already assigned to %s", assignee.ID),
			}
		}
	case stepUpdate:
		if assignee == nil {
			return &InvalidTransitionError{Current: req.Status, Target: target, Reason: "no actor assigned"}
		}
		if assignee.ID != actor.ID {
			return &UnauthorizedError{
				Required: r.role,
				Actual:   actor.Role,
				Reason:   fmt.Sprintf("request is assigned to another %s", roleNoun(r.role)),
			}
		}
	}

	if !CanTransition(req.Status, target, actor.Role, assignee != nil) {
		return &InvalidTransitionError{Current: req.Status, Target: target}
	}
	return nil
}

func transitionHint(current, target Status) string {
	if !target.Valid() {
		return "unknown target status"
	}
	if target.Rank() <= current.Rank() {
		return "status cannot move backward"
	}
	if next, ok := current.Next(); ok && next != target {
		return fmt.Sprintf("next status must be %s", next)
	}
	return ""
}

func roleNoun(r Role) string {
	switch r {
	case RoleTester:
		return "tester"
	case RoleDoctor:
		return "doctor"
	}
	return "actor"
}
