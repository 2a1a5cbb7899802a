package domain

// Messages returned to callers by the auth workflow. Login and role assignment
// deliberately use a single message for several causes so that callers cannot
// probe which accounts or roles exist.
const (
	MsgEmailRegistered     = "Email is already Registered"
	MsgNameRegistered      = "Name is already Registered"
	MsgRegistered          = "User registered successfully"
	MsgInvalidLogin        = "Email or Password is incorrect!"
	MsgLoggedIn            = "User login successfully"
	MsgInvalidUserOrRole   = "Invalid user ID or Role"
	MsgRoleAlreadyAssigned = "User already assigned to this role"
	MsgSomethingWentWrong  = "Something went wrong"
)
