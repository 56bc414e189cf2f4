/*
Package gconf implements a configuration store intended to be used as a global,
in-database configuration.

Each extension keeps a single configuration object under its package name.
The object is loaded from the "conf" section of the genesis file and read
back with Load whenever the extension needs it.
*/
package gconf
