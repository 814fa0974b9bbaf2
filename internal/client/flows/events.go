package flows

// Field identifies a form input.
type Field string

const (
	FieldUsername Field = "username"
	FieldPassword Field = "password"
	FieldConfirm  Field = "confirm"
)

// LoginEvent is accepted by ReduceLogin.
type LoginEvent interface{ loginEvent() }

// RegisterEvent is accepted by ReduceRegister.
type RegisterEvent interface{ registerEvent() }

// ProfileEvent is accepted by ReduceProfile.
type ProfileEvent interface{ profileEvent() }

// Mounted is sent once when the screen owning a flow appears.
type Mounted struct{}

func (Mounted) loginEvent()   {}
func (Mounted) profileEvent() {}

// FieldChanged is a user edit of one form input.
type FieldChanged struct {
	Field Field
	Value string
}

func (FieldChanged) loginEvent()    {}
func (FieldChanged) registerEvent() {}

// Submitted is the user pressing the form's submit action.
type Submitted struct{}

func (Submitted) loginEvent()    {}
func (Submitted) registerEvent() {}

type RefreshRequested struct{}

func (RefreshRequested) profileEvent() {}

type LogoutRequested struct{}

func (LogoutRequested) profileEvent() {}

// VerifyRequested asks the profile flow to check the stored token with the
// server.
type VerifyRequested struct{}

func (VerifyRequested) profileEvent() {}
