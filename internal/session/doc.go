// Package session holds the interactive extraction flow for one document.
//
// A Machine walks a page through orientation correction, candidate search,
// selection, photo rotation and export. Each method checks the current
// Mode and returns an InvalidTransition error when called out of turn.
// Recoverable user errors (a click that hits nothing, a selection that is
// too small) leave the mode unchanged so the user can try again.
package session
