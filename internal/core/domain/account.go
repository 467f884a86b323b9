package domain

// AccountProvider identifies the identity service that resolved an account.
type AccountProvider string

const (
	ProviderWebin AccountProvider = "webin"
	ProviderLSRI  AccountProvider = "lsri"
)

// SubmissionAccount is the identity resolved from a bearer credential.
// It is produced only by token verification and never persisted on its own.
type SubmissionAccount struct {
	ID       string          `json:"id"`
	Provider AccountProvider `json:"provider"`
}

// Equal reports whether two accounts refer to the same principal. Ownership
// checks rely on this: the provider qualifies the identifier, so equal IDs
// from different providers are different accounts.
func (a SubmissionAccount) Equal(other SubmissionAccount) bool {
	return a.Provider == other.Provider && a.ID == other.ID
}
