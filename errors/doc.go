/*
Package errors implements the error handling used across loom.

Every error returned by a handler should wrap one of the root errors declared
in this package (or one registered by an extension with Register). Root errors
carry an ABCI code, which lets clients tell apart a rejected validation from an
authorization failure or a ledger level failure without parsing strings.

Create instances at the point of failure with ErrXyz.New/Newf or
Wrap(err, "..."), so a stack trace is attached once, at the lowest frame.

	%s is just the error message
	%+v is the full stack trace

Use ErrXyz.Is(err) to classify an error, regardless of how many times it was
wrapped.
*/
package errors
