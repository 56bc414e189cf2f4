/*
Package utils contains decorators that are useful for any
application: logging, panic recovery, per transaction savepoints
and tagging of delivered actions.
*/
package utils
