package netlist

import "fmt"

// UnknownNetError is returned when a net code is not present in the registry.
type UnknownNetError struct {
	ID NetID
}

func (e *UnknownNetError) Error() string {
	return fmt.Sprintf("unknown net %d", e.ID)
}

// NetConflictError is returned when a track or wire endpoint lands on a pin
// or pad that belongs to a different net.
type NetConflictError struct {
	Member    Member
	MemberNet NetID
	Net       NetID
}

func (e *NetConflictError) Error() string {
	return fmt.Sprintf("segment on net %d ends on %s which belongs to net %d", e.Net, e.Member, e.MemberNet)
}
