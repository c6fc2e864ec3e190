package payments

// Network is a chain the transfer API can withdraw to.
type Network struct {
	ID   string
	Name string
}

// Networks lists the supported chains in display order.
var Networks = []Network{
	{ID: "1", Name: "Ethereum"},
	{ID: "8453", Name: "Base"},
	{ID: "42161", Name: "Arbitrum"},
	{ID: "137", Name: "Polygon"},
	{ID: "10", Name: "Optimism"},
	{ID: "56", Name: "BNB Smart Chain"},
}

// LookupNetwork finds a supported chain by id.
func LookupNetwork(id string) (Network, bool) {
	for _, n := range Networks {
		if n.ID == id {
			return n, true
		}
	}
	return Network{}, false
}

// NetworkName returns the display name of a chain id, or the id itself.
func NetworkName(id string) string {
	if n, ok := LookupNetwork(id); ok {
		return n.Name
	}
	if id == "" {
		return "Unknown Network"
	}
	return id
}
