package shopx

// Nav names the navigation bar the application chrome shows.
type Nav string

const (
	NavPublic Nav = "public"
	NavUser   Nav = "user"
	NavAdmin  Nav = "admin"
)

// ChromeState is what the role-aware chrome renders.
type ChromeState struct {
	Nav  Nav    `json:"nav"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role,omitempty"`
}

// Chrome derives the chrome state from the current session. Like the guard
// it reads the session record on every call.
type Chrome struct {
	guard *Guard
}

// NewChrome returns a Chrome reading sessions through guard, so corrupted
// records found while rendering the chrome are erased the same way.
func NewChrome(guard *Guard) *Chrome {
	return &Chrome{guard: guard}
}

// State returns the chrome state for storage.
func (c *Chrome) State(storage *Storage) ChromeState {
	rec, ok := c.guard.Session(storage)
	if !ok {
		return ChromeState{Nav: NavPublic}
	}

	state := ChromeState{Nav: NavUser, Name: rec.Name, Role: rec.Role}
	if rec.Role.Is(RoleAdmin) {
		state.Nav = NavAdmin
	}
	return state
}
