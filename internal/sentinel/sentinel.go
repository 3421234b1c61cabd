package sentinel

var _ error = Error("")

// Error is an immutable error type backed by a string constant.
//
// Two Error values match under errors.Is when their text is equal; an Error
// never matches an errors.New value with the same text.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
