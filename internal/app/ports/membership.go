package ports

// MembershipPort is the per-room presence reducer. Apply is called by a
// single producer (the session event pump); the query methods are safe
// for concurrent readers.
type MembershipPort interface {
	Apply(ev Event)
	MembersOf(room string) []string
	Count(room string) int
	Rooms() []string
}
