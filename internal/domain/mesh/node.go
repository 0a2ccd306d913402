package mesh

// Class is the structural position of a node in the mesh.
type Class string

const (
	ClassInput        Class = "input"
	ClassOrchestrator Class = "orchestrator"
	ClassSpecialist   Class = "specialist"
	ClassOutput       Class = "output"
)

func (c Class) Valid() bool {
	switch c {
	case ClassInput, ClassOrchestrator, ClassSpecialist, ClassOutput:
		return true
	}
	return false
}

// Node identifies one peer in the mesh. Nodes are immutable after bootstrap;
// a node's liveness lives in the health monitor, never here.
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Class Class  `json:"class" yaml:"class"`
	Addr  string `json:"addr" yaml:"addr"`
}
