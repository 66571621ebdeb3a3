package types

// SystemDefinition declares what a system needs before it can run: the
// component types an entity must have to be selected, optional types that
// are attached when present, the systems whose writes it depends on, and a
// priority used only to order reporting inside an execution group.
type SystemDefinition struct {
	Name string `json:"name"`
	// Address is where the system is reachable within the shared namespace.
	// The coordinator treats it as opaque.
	Address      string   `json:"address"`
	Required     []string `json:"required"`
	Optional     []string `json:"optional"`
	Dependencies []string `json:"dependencies"`
	Priority     int      `json:"priority"`
}
