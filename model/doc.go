// Package model defines the identifier and document types shared by the
// build engine and its collaborators.
package model
