package entity

// VerificationMessage is a single verification request handed from the stream
// consumer to the email dispatcher.
type VerificationMessage struct {
	EntryID string
	Email   string
	Hash    string
}

// VerificationEmail is the provider-neutral payload rendered for one message.
type VerificationEmail struct {
	From      string
	To        string
	Subject   string
	Template  string
	Variables string
}
