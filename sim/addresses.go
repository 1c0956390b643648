package sim

import (
	"fmt"

	"github.com/signalsfoundry/manet-trust-router/model"
)

// addressBook assigns each node a synthetic dotted-quad address and
// implements both evidence.AddressBook (address -> node) and
// routetable.AddressResolver (node -> address, plus a stub interface id).
type addressBook struct {
	byNode map[model.NodeID]string
	byAddr map[string]model.NodeID
}

func newAddressBook(nodes []model.NodeID) *addressBook {
	ab := &addressBook{
		byNode: make(map[model.NodeID]string, len(nodes)),
		byAddr: make(map[string]model.NodeID, len(nodes)),
	}
	for _, id := range nodes {
		addr := fmt.Sprintf("10.0.%d.%d", (id>>8)&0xFF, id&0xFF)
		ab.byNode[id] = addr
		ab.byAddr[addr] = id
	}
	return ab
}

func (ab *addressBook) NodeForAddress(addr string) (model.NodeID, bool) {
	id, ok := ab.byAddr[addr]
	return id, ok
}

func (ab *addressBook) AddressOf(node model.NodeID) string {
	return ab.byNode[node]
}

// InterfaceTo always returns interface 0: the harness models one radio per
// node, so there is no multi-interface selection to make.
func (ab *addressBook) InterfaceTo(_, _ model.NodeID) int {
	return 0
}
