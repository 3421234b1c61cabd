// Package sentinel provides a string-backed error type so that sentinel
// errors can be declared as constants.
//
// An error created with errors.New lives in a variable that any importer can
// reassign. Error values are constants instead, and still work with
// errors.Is through wrapped chains because the type is comparable.
package sentinel
