package realtime

// RoomKind tags the addressing scheme for a broadcast room.
type RoomKind string

const (
	RoomKindTicket     RoomKind = "ticket"
	RoomKindUser       RoomKind = "user"
	RoomKindDepartment RoomKind = "department"
	RoomKindRole       RoomKind = "role"
)

// RoomID is a typed room address. Using a struct instead of concatenated
// strings keeps room resolution testable and rules out formatting bugs.
type RoomID struct {
	Kind RoomKind
	Ref  string
}

// TicketRoom addresses the room for one ticket's participants.
func TicketRoom(ticketID string) RoomID {
	return RoomID{Kind: RoomKindTicket, Ref: ticketID}
}

// UserRoom addresses a user's private room.
func UserRoom(userID string) RoomID {
	return RoomID{Kind: RoomKindUser, Ref: userID}
}

// DepartmentRoom addresses all connections of a department's members.
func DepartmentRoom(departmentID string) RoomID {
	return RoomID{Kind: RoomKindDepartment, Ref: departmentID}
}

// StaffRoom is joined by agents and admins.
var StaffRoom = RoomID{Kind: RoomKindRole, Ref: "staff"}

// AdminRoom is joined by admins only.
var AdminRoom = RoomID{Kind: RoomKindRole, Ref: "admin"}

// String renders the wire name of the room.
func (r RoomID) String() string {
	if r.Kind == RoomKindRole {
		return r.Ref
	}
	return string(r.Kind) + "_" + r.Ref
}
