package process

import "fmt"

// State represents a supervised process lifecycle state.
type State int

const (
	Starting   State = iota // STARTING: waiting to be spawned or respawned
	Running                 // RUNNING: child is alive and counted as live
	Terminated              // TERMINATED: exited and will never be restarted
)

var stateNames = [...]string{
	"STARTING", "RUNNING", "TERMINATED",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("UNKNOWN(%d)", s)
}

// validTransitions defines allowed state transitions. Starting->Starting
// covers a retry after a spawn that never produced a child.
var validTransitions = map[State][]State{
	Starting:   {Running, Starting, Terminated},
	Running:    {Starting, Terminated},
	Terminated: {},
}

func canTransition(from, to State) bool {
	for _, a := range validTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}
