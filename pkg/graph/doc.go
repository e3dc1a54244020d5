/*
Package graph renders a service's reactive dependency shape as an ASCII
tree, for `meerkat graph`. It is a pure rendering layer: it never talks to
a running service directly, only to the map/config types pkg/driver.Inspect
already extracts from a service's ReturnedConfiguration, grounded on
pumped-fn/pumped-go's use of github.com/m1gwings/treedrawer to visualize a
dependency graph (extensions/graph_debug.go in that repo).
*/
package graph
