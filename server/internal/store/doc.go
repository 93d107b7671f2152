// Package store is the file-backed parameter store. Every regular file
// directly inside the base directory is one parameter: the file name is the
// parameter name and the first line of its content is the value. Nothing is
// cached; every read goes to the filesystem.
package store
