// Package store provides SQLite-backed storage for nodes, items and links.
//
// One database holds every node. Tables:
//   - nodes: registered node ids and display names
//   - items: content items keyed by (node_id, item_id)
//   - links: one row per item that has linkage, carrying the optional parent
//   - link_children: one row per (item, child node), so a link can never hold
//     two children on the same node
//
// The store implements content.Store, content.NodeLister and the engine's
// link store. It does not enforce the bidirectional link invariant; the
// engine writes both sides.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
