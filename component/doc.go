// Package component defines the lifecycle interface shared by long-lived
// pieces of a service (Start, Stop, Health) and the optional Describable
// summary.
package component
