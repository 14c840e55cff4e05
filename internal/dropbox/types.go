package dropbox

// Account is the authenticated user, flattened from the SDK's FullAccount.
type Account struct {
	ID          string
	DisplayName string
	Email       string
	Country     string
}
