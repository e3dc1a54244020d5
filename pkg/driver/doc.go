/*
Package driver loads a Meerkat program description, spawns one service
actor per declared service, wires cross-service imports/exports by
resolving each to the owning service's mailbox, and runs a program's
declared do/assert tests serially per service.

# Program format

A program is a YAML document of services (variables, definitions, imports,
exports) and a parallel map of per-service test commands:

	services:
	  main:
	    vars: {x: "2", y: "3"}
	    defs: {z: "x + y"}
	    exports: [z]
	  other:
	    imports:
	      zref: {service: main, name: z}
	tests:
	  main:
	    - do: "{ x <- 10 }"
	    - assert: "z == 13"

LoadProgram parses this document, constructs one service.Service per
top-level service key, spawns each under an errgroup.Group, and issues two
rounds of Configure per service: the first installs variables and
definitions (via coordinator.Configurator), the second installs imports and
exports once every service's mailbox is known.

RunTests then drives each service's declared commands serially, threading
the commit basis returned by one command into the next as its caller
basis.
*/
package driver
