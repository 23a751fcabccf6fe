// Package ir provides the data model shared by every linkcast package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Node and item identities are int64 values, never floats
//   - A Link is the only linkage record; Link.Children holds at most one
//     item per node by construction (map keyed by NodeID)
//   - Commands and operator actions are closed sets of typed values
//   - All JSON tags use snake_case
package ir
