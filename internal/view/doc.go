// Package view implements the navigation state machine of the feedboard
// terminal interface.
//
// A [State] says which view is showing and what is selected in it. The
// [Machine] turns a key press and a store snapshot into the next state and
// a list of [Effect] values; it never touches the store itself. After the
// store changes, [Machine.Reconcile] moves the state back onto rows that
// still exist.
//
// The main components are:
//
//   - [State] and [Kind]: the current view and its selection
//   - [Machine]: the transition rules
//   - [Key]: input events, named the way terminal libraries report them
//   - [Effect]: side effects requested by a transition
//   - [Filter]: dashboard criteria stepped from the filter panel
package view
