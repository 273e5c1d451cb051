package ws

import "strconv"

// RoomKind discriminates the broadcast audiences: a customer's own
// connections, an assigned employee, the admin pool, and the direct
// per-staff channel used for staff-to-staff messages.
type RoomKind string

const (
	RoomKindCustomer RoomKind = "customer"
	RoomKindEmployee RoomKind = "employee"
	RoomKindAdmin    RoomKind = "admin"
	RoomKindUser     RoomKind = "user"
)

// RoomKey is a typed group key; the hub maps each key to the set of
// subscribed connections.
type RoomKey struct {
	Kind RoomKind
	ID   string
}

func CustomerRoom(sessionID string) RoomKey {
	return RoomKey{Kind: RoomKindCustomer, ID: sessionID}
}

func EmployeeRoom(employeeID int64) RoomKey {
	return RoomKey{Kind: RoomKindEmployee, ID: strconv.FormatInt(employeeID, 10)}
}

func AdminRoom() RoomKey {
	return RoomKey{Kind: RoomKindAdmin}
}

func UserRoom(staffID int64) RoomKey {
	return RoomKey{Kind: RoomKindUser, ID: strconv.FormatInt(staffID, 10)}
}
