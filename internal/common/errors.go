// Package common holds sentinel errors shared by the client repositories and
// services. Match them with errors.Is.
package common

import "errors"

// ErrorNotFound is returned by repositories when the requested row does not
// exist.
var ErrorNotFound = errors.New("not found")
