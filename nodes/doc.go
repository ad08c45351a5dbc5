// Package nodes provides a small set of ready-made graph nodes: a counting
// producer, pass-through and mapping filters, and a counting consumer. They
// serve as building blocks for simple graphs and as templates for writing
// custom nodes.
package nodes
