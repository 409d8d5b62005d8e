package types

// Activity is a host-reported participant action.
type Activity string

const (
	ActivityMove        Activity = "move"
	ActivityLook        Activity = "look"
	ActivityDeath       Activity = "death"
	ActivityTeleport    Activity = "teleport"
	ActivityDisconnect  Activity = "disconnect"
	ActivityDamage      Activity = "damage"
	ActivityInteract    Activity = "interact"
	ActivityInventory   Activity = "inventory"
	ActivityAttack      Activity = "attack"
	ActivityCommand     Activity = "command"
	ActivityPortal      Activity = "portal"
	ActivityWorldChange Activity = "world-change"
)

func (a Activity) String() string {
	return string(a)
}

func (a Activity) IsValid() bool {
	switch a {
	case ActivityMove, ActivityLook, ActivityDeath, ActivityTeleport, ActivityDisconnect,
		ActivityDamage, ActivityInteract, ActivityInventory, ActivityAttack, ActivityCommand,
		ActivityPortal, ActivityWorldChange:
		return true
	default:
		return false
	}
}

// CancelCause is why a pending teleport was stopped.
type CancelCause string

const (
	CauseMove       CancelCause = "move"
	CauseDeath      CancelCause = "death"
	CauseTeleport   CancelCause = "teleport"
	CauseDisconnect CancelCause = "disconnect"
	CauseManual     CancelCause = "manual"
	CauseShutdown   CancelCause = "shutdown"
)

func (c CancelCause) String() string {
	return string(c)
}

// CauseFor maps an activity to the cancellation it triggers. The second
// return value is false for activities that leave a pending teleport alone.
func CauseFor(a Activity) (CancelCause, bool) {
	switch a {
	case ActivityMove:
		return CauseMove, true
	case ActivityDeath:
		return CauseDeath, true
	case ActivityTeleport:
		return CauseTeleport, true
	case ActivityDisconnect:
		return CauseDisconnect, true
	default:
		return "", false
	}
}
